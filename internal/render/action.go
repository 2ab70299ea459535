package render

import (
	"strings"

	"github.com/rendis/flowscript/pkg/schema"
)

func renderAction(rc *Context, el *schema.Element) error {
	if el.Name == "" {
		return schema.MissingField(el.Kind, "", "name")
	}
	Header(rc.Out, el)
	rc.Out.Comment("Action - " + el.Name)

	var params []string
	if el.Action != nil {
		for _, p := range el.Action.InputParameters {
			if p.Value == nil || p.Value.ElementReference == "" {
				continue
			}
			ref := p.Value.ElementReference
			if strings.HasPrefix(ref, "$Loop.") {
				if _, inLoop := rc.LoopVariable(); !inLoop {
					rc.Out.Comment("Loop variable reference: " + ref)
					continue
				}
			}
			params = append(params, rc.resolve(ref))
		}
	}
	rc.Out.Writef("%s(%s);", el.Name, strings.Join(params, ", "))
	return nil
}

func renderSubflow(rc *Context, el *schema.Element) error {
	if el.Name == "" {
		return schema.MissingField(el.Kind, "", "name")
	}
	Header(rc.Out, el)

	call := el.Name
	var params []string
	var outputs []schema.OutputAssignment
	if el.Subflow != nil {
		if el.Subflow.FlowName != "" {
			call = el.Subflow.FlowName
		}
		for _, p := range el.Subflow.InputAssignments {
			v, ok := formatValue(p.Value, `"`, rc.resolve)
			if !ok {
				v = "null"
			}
			params = append(params, p.Name+": "+v)
		}
		outputs = el.Subflow.OutputAssignments
	}
	rc.Out.Writef("%s(%s);", call, strings.Join(params, ", "))
	for _, o := range outputs {
		rc.Out.Writef("%s = %s.%s;", rc.resolve(o.AssignToReference), call, o.Field)
	}
	return nil
}
