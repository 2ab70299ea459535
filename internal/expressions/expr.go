package expressions

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rendis/flowscript/pkg/schema"
)

// ExprEngine evaluates expr-lang expressions. The transpiler uses it to check
// custom condition logic ("1 AND (2 OR 3)") once the indexes have been
// rewritten to boolean variables c1..cN.
//
// Programs are typed against the environment they are first run with, so
// the cache is keyed by source and environment variable names.
type ExprEngine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEngine creates an engine with an empty program cache.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{cache: make(map[string]*vm.Program)}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return "expr"
}

// Evaluate runs expression with data as its environment.
func (e *ExprEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	return e.run(ctx, expression, data, false)
}

// Predicate runs expression over boolean variables and requires a boolean
// result; a non-boolean expression fails to compile.
func (e *ExprEngine) Predicate(ctx context.Context, expression string, vars map[string]bool) (bool, error) {
	env := make(map[string]any, len(vars))
	for k, v := range vars {
		env[k] = v
	}
	out, err := e.run(ctx, expression, env, true)
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

func (e *ExprEngine) run(ctx context.Context, expression string, env map[string]any, asBool bool) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty expr expression")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if env == nil {
		env = map[string]any{}
	}

	prg, err := e.compile(expression, env, asBool)
	if err != nil {
		return nil, err
	}
	out, err := vm.Run(prg, env)
	if err != nil {
		return nil, exprError("expr evaluation failed", expression, err)
	}
	return out, nil
}

func (e *ExprEngine) compile(expression string, env map[string]any, asBool bool) (*vm.Program, error) {
	key := strings.Join(slices.Sorted(maps.Keys(env)), ",") + "\x00" + expression
	if asBool {
		key = "bool:" + key
	}

	e.mu.RLock()
	prg, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	opts := []expr.Option{expr.Env(env), expr.AllowUndefinedVariables()}
	if asBool {
		opts = append(opts, expr.AsBool())
	}
	prg, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, exprError("expr compile error", expression, err)
	}

	e.mu.Lock()
	e.cache[key] = prg
	e.mu.Unlock()
	return prg, nil
}

func exprError(what, expression string, err error) *schema.TranspileError {
	return schema.NewErrorf(schema.ErrCodeExpression, "%s in %q: %s", what, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

var _ Engine = (*ExprEngine)(nil)
