package expressions

import (
	"context"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rendis/flowscript/pkg/schema"
)

// Lint rule conditions see two variables, both map(string, dyn):
//
//	element  the element under inspection (kind, name, in_loop, ...)
//	flow     flow metadata (label, process_type, status)
var celVariables = []string{"element", "flow"}

// CELEngine compiles and runs lint rule conditions written in CEL.
// Compiled programs are cached by source and shared across goroutines.
type CELEngine struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewCELEngine builds the rule environment.
func NewCELEngine() (*CELEngine, error) {
	dyn := cel.MapType(cel.StringType, cel.DynType)
	opts := make([]cel.EnvOption, 0, len(celVariables))
	for _, name := range celVariables {
		opts = append(opts, cel.Variable(name, dyn))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression, "CEL environment: %s", err).WithCause(err)
	}
	return &CELEngine{env: env, cache: make(map[string]cel.Program)}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string {
	return "cel"
}

// Check compiles expression without running it so a rule file can be
// rejected when it is loaded.
func (e *CELEngine) Check(expression string) error {
	_, err := e.program(expression)
	return err
}

// Evaluate runs expression against data. Missing variables are bound to
// empty maps.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	prg, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	out, _, err := prg.ContextEval(ctx, activation(data))
	if err != nil {
		return nil, celError("CEL evaluation failed", expression, err)
	}
	return out.Value(), nil
}

// Match runs expression as a rule condition. Anything but a boolean result
// is an error.
func (e *CELEngine) Match(ctx context.Context, expression string, data map[string]any) (bool, error) {
	out, err := e.Evaluate(ctx, expression, data)
	if err != nil {
		return false, err
	}
	hit, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeExpression,
			"condition %q returned %T, want bool", expression, out).
			WithDetails(map[string]any{"expression": expression})
	}
	return hit, nil
}

func (e *CELEngine) program(expression string) (cel.Program, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty CEL expression")
	}

	e.mu.RLock()
	prg, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expression)
	if err := issues.Err(); err != nil {
		return nil, celError("CEL compile error", expression, err)
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, celError("CEL program error", expression, err)
	}

	e.mu.Lock()
	if cached, ok := e.cache[expression]; ok {
		prg = cached
	} else {
		e.cache[expression] = prg
	}
	e.mu.Unlock()
	return prg, nil
}

func activation(data map[string]any) map[string]any {
	vars := make(map[string]any, len(celVariables))
	for _, name := range celVariables {
		v := data[name]
		if v == nil {
			v = map[string]any{}
		}
		vars[name] = v
	}
	return vars
}

func celError(what, expression string, err error) *schema.TranspileError {
	return schema.NewErrorf(schema.ErrCodeExpression, "%s in %q: %s", what, expression, err).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

var _ Engine = (*CELEngine)(nil)
