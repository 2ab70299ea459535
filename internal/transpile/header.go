package transpile

import (
	"strings"

	"github.com/rendis/flowscript/pkg/schema"
)

// writeHeader emits the flow banner and the declarations that precede the
// entry point: variables, constants and formula accessors.
func (w *walker) writeHeader() {
	f := w.flow
	w.out.Comment("Flow: " + f.Label)
	w.out.Comment("Type: " + schema.ProcessTypeLabel(f.ProcessType))
	w.out.Comment("Status: " + f.Status)
	if d := strings.TrimSpace(f.Description); d != "" {
		w.out.Comment("Description:")
		for _, line := range strings.Split(d, "\n") {
			w.out.Comment("  " + strings.TrimSpace(line))
		}
	}
	w.out.Blank()

	w.writeVariables()
	w.writeConstants()
	w.writeFormulas()
}

func (w *walker) writeVariables() {
	if len(w.flow.Variables) == 0 {
		return
	}
	w.out.Comment("Variable Declarations")
	for _, v := range w.flow.Variables {
		typ := v.TypeName()
		w.env.Declare(v.Name, typ)
		if v.IsCollection {
			w.out.Writef("%s %s = new %s();", typ, v.Name, typ)
		} else {
			w.out.Writef("%s %s;", typ, v.Name)
		}
	}
	w.out.Blank()
}

func (w *walker) writeConstants() {
	if len(w.flow.Constants) == 0 {
		return
	}
	w.out.Comment("Constants")
	for _, c := range w.flow.Constants {
		typ := c.DataType
		if typ == "" {
			typ = "Object"
		}
		w.env.Declare(c.Name, typ)
		w.out.Writef("final %s %s = %s;", typ, c.Name, w.operand(c.Value, "null"))
	}
	w.out.Blank()
}

// writeFormulas renders every formula as an accessor up front. Formulas are
// declared before any is rendered so that formulas may call each other.
func (w *walker) writeFormulas() {
	var formulas []*schema.Element
	for _, el := range w.flow.Elements {
		if el.Kind == schema.KindFormula {
			formulas = append(formulas, el)
			if el.Name != "" {
				w.env.DeclareFormula(el.Name)
			}
		}
	}
	if len(formulas) == 0 {
		return
	}
	w.out.Comment("Formulas")
	for _, el := range formulas {
		w.processed[el.Key()] = true
		w.renderElement(el)
	}
	w.out.Blank()
}
