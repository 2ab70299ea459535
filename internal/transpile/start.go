package transpile

import (
	"fmt"

	"github.com/rendis/flowscript/pkg/schema"
)

// entryProcedure is the procedure that wraps everything reachable from the
// start element.
const entryProcedure = "processFlow"

// processStart opens the entry procedure, binds the trigger records and
// walks the graph from the start element, guarded by its entry criteria.
func (w *walker) processStart(start *schema.Element) error {
	w.processed[start.Key()] = true
	w.path = append(w.path, start.DisplayName())
	defer func() { w.path = w.path[:len(w.path)-1] }()

	spec := start.Start
	if spec == nil {
		spec = &schema.StartSpec{}
	}
	obj := spec.Object
	if obj == "" {
		obj = "SObject"
	}

	w.out.Writef("%s();", entryProcedure)
	w.out.OpenProcedure(entryProcedure, "")
	defer w.out.CloseProcedure()

	w.out.Writef("%s record = Trigger.new[0];", obj)
	w.out.Writef("%s oldRecord = Trigger.old[0];", obj)
	w.out.Blank()
	w.env.Declare("record", obj)
	w.env.Declare("oldRecord", obj)

	entry := w.entryConnector(start)
	cond := w.entryCriteria(start, spec)
	if cond == "" {
		return w.follow(entry)
	}

	w.out.Writef("if (%s) {", cond)
	scope := w.out.Indent()
	var err error
	if entry != nil {
		err = w.follow(entry)
	} else {
		w.out.Comment("Continue flow processing")
	}
	scope.Close()
	w.out.Write("}")
	return err
}

// entryConnector returns the start connector, or else the first scheduled
// path, that leads to a known element.
func (w *walker) entryConnector(start *schema.Element) *schema.Connector {
	candidates := []*schema.Connector{start.Connector}
	if start.Start != nil {
		for _, p := range start.Start.ScheduledPaths {
			candidates = append(candidates, p.Connector)
		}
	}
	for _, c := range candidates {
		if c == nil || c.Target == "" {
			continue
		}
		if _, ok := w.elements.Find(c.Target); ok {
			return c
		}
		w.report(SeverityWarning, schema.ErrCodeNotFound, start, fmt.Sprintf("connector target %q not found", c.Target))
	}
	return nil
}

func (w *walker) entryCriteria(start *schema.Element, spec *schema.StartSpec) string {
	var conds []string
	for _, f := range spec.Filters {
		if f.Field == "" || f.Operator == "" {
			continue
		}
		conds = append(conds, w.formatFilter(f))
	}
	if len(conds) == 0 {
		return ""
	}
	return w.combine(start, spec.FilterLogic, conds)
}
