package expressions

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/rendis/flowscript/pkg/schema"
)

// GoJQEngine runs jq programs over the JSON form of a flow. Programs may
// reference named variables ($name) bound per call. Compiled programs are
// cached by source and variable names, so the engine is cheap to reuse
// across goroutines.
type GoJQEngine struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewGoJQEngine creates an engine with an empty program cache.
func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{cache: make(map[string]*gojq.Code)}
}

// Name returns the engine identifier.
func (e *GoJQEngine) Name() string {
	return "jq"
}

// Evaluate runs program over data. No output yields nil, one output is
// returned as is and several are collected into a []any.
func (e *GoJQEngine) Evaluate(ctx context.Context, program string, data map[string]any) (any, error) {
	results, err := e.EvaluateAll(ctx, program, data)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// EvaluateAll runs program over data and returns every output in order.
func (e *GoJQEngine) EvaluateAll(ctx context.Context, program string, data map[string]any) ([]any, error) {
	return e.Query(ctx, program, data, nil)
}

// Query runs program over data with vars bound as $name variables.
func (e *GoJQEngine) Query(ctx context.Context, program string, data map[string]any, vars map[string]any) ([]any, error) {
	if strings.TrimSpace(program) == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty jq program")
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)
	values := make([]any, len(names))
	for i, name := range names {
		values[i] = vars[name]
	}

	code, err := e.compile(program, names)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.RunWithContext(ctx, data, values...)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, jqError("jq evaluation failed", program, err)
		}
		results = append(results, v)
	}
	return results, nil
}

// compile returns the cached program for (program, names), compiling it on
// first use. Environment access ($ENV, env) always sees an empty
// environment.
func (e *GoJQEngine) compile(program string, names []string) (*gojq.Code, error) {
	vars := make([]string, len(names))
	for i, n := range names {
		vars[i] = "$" + n
	}
	key := strings.Join(vars, ",") + "\x00" + program

	e.mu.RLock()
	code, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return code, nil
	}

	query, err := gojq.Parse(program)
	if err != nil {
		return nil, jqError("jq parse error", program, err)
	}
	code, err = gojq.Compile(query,
		gojq.WithVariables(vars),
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, jqError("jq compile error", program, err)
	}

	e.mu.Lock()
	e.cache[key] = code
	e.mu.Unlock()
	return code, nil
}

func jqError(what, program string, err error) *schema.TranspileError {
	return schema.NewErrorf(schema.ErrCodeExpression, "%s in %q: %s", what, program, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"program": program})
}

var _ Engine = (*GoJQEngine)(nil)
