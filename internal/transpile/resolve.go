package transpile

import (
	"strings"

	"github.com/rendis/flowscript/pkg/schema"
)

// resolve rewrites a flow reference into pseudocode: formulas become
// accessor calls, record globals become the trigger variables and, inside a
// loop, the innermost collection and the names of open loops become their
// loop variables.
func (w *walker) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ref
	}
	if w.env.IsFormula(ref) {
		return schema.FormulaFunction(ref) + "()"
	}
	if rest, ok := strings.CutPrefix(ref, "$Record."); ok {
		return "record." + rest
	}
	if rest, ok := strings.CutPrefix(ref, "$Record__Prior."); ok {
		return "oldRecord." + rest
	}
	switch ref {
	case "$Record":
		return "record"
	case "$Record__Prior":
		return "oldRecord"
	}
	if rest, ok := strings.CutPrefix(ref, "$Loop."); ok {
		if v, active := w.rc.LoopVariable(); active {
			return v + "." + rest
		}
		return ref
	}
	if rest, ok := strings.CutPrefix(ref, "$"); ok {
		return rest
	}

	top, ok := w.loops.Top()
	if !ok {
		return ref
	}
	if v, hit := rebase(ref, top.Collection, top.Variable); hit {
		return v
	}
	for _, open := range w.loops.Open() {
		loop, known := w.env.LoopNameOf(open.Variable)
		if !known {
			continue
		}
		if out, hit := rebase(ref, loop, open.Variable); hit {
			return out
		}
	}
	return ref
}

// rebase maps name, or a name-prefixed field path, onto variable.
func rebase(ref, name, variable string) (string, bool) {
	if name == "" {
		return "", false
	}
	if ref == name {
		return variable, true
	}
	if rest, ok := strings.CutPrefix(ref, name+"."); ok {
		return variable + "." + rest, true
	}
	return "", false
}
