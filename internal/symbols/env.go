// Package symbols tracks the names a run declares: variable types, loop
// variables, formulas and the stack of open loops.
package symbols

import "strings"

// Env is the variable environment of a single run. Entries are never
// removed; the environment lives exactly as long as the run.
type Env struct {
	types     map[string]string
	loopVars  map[string]string
	loopOrder []string
	formulas  map[string]bool
}

// NewEnv returns an empty environment.
func NewEnv() *Env {
	return &Env{
		types:    make(map[string]string),
		loopVars: make(map[string]string),
		formulas: make(map[string]bool),
	}
}

// Declare records (or overwrites) the type of name.
func (e *Env) Declare(name, typ string) {
	e.types[name] = typ
}

// TypeOf returns the declared type of name.
func (e *Env) TypeOf(name string) (string, bool) {
	t, ok := e.types[name]
	return t, ok
}

// ElementType returns the element type of a collection: List<T> and Set<T>
// unwrap to T, anything else is returned as is.
func (e *Env) ElementType(name string) (string, bool) {
	t, ok := e.types[name]
	if !ok {
		return "", false
	}
	return UnwrapCollection(t), true
}

// DeclareLoopVariable binds a loop element name to its iteration variable.
func (e *Env) DeclareLoopVariable(loop, variable string) {
	if _, ok := e.loopVars[loop]; !ok {
		e.loopOrder = append(e.loopOrder, loop)
	}
	e.loopVars[loop] = variable
}

// LoopVariableOf returns the iteration variable bound to loop.
func (e *Env) LoopVariableOf(loop string) (string, bool) {
	v, ok := e.loopVars[loop]
	return v, ok
}

// LoopNameOf returns the first declared loop whose variable is variable.
func (e *Env) LoopNameOf(variable string) (string, bool) {
	for _, loop := range e.loopOrder {
		if e.loopVars[loop] == variable {
			return loop, true
		}
	}
	return "", false
}

// DeclareFormula marks name as a formula resource.
func (e *Env) DeclareFormula(name string) {
	e.formulas[name] = true
}

// IsFormula reports whether name was declared as a formula.
func (e *Env) IsFormula(name string) bool {
	return e.formulas[name]
}

// UnwrapCollection strips a List<...> or Set<...> wrapper.
func UnwrapCollection(t string) string {
	for _, prefix := range []string{"List<", "Set<"} {
		if strings.HasPrefix(t, prefix) && strings.HasSuffix(t, ">") {
			return t[len(prefix) : len(t)-1]
		}
	}
	return t
}
