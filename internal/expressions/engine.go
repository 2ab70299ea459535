package expressions

import "context"

// Engine evaluates expressions over flow data.
// Three implementations: CEL (lint rules), GoJQ (flow queries), Expr (condition logic).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
