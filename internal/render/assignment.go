package render

import (
	"strings"

	"github.com/rendis/flowscript/pkg/schema"
)

var collectionSuffixes = []string{"List", "Set", "Collection"}

func renderAssignment(rc *Context, el *schema.Element) error {
	Header(rc.Out, el)
	if el.Assignment == nil {
		return nil
	}
	for _, item := range el.Assignment.Items {
		assignItem(rc, item)
	}
	return nil
}

func assignItem(rc *Context, item schema.AssignmentItem) {
	_, inLoop := rc.LoopVariable()
	raw := item.AssignToReference
	if strings.HasPrefix(raw, "$Loop.") && !inLoop {
		rc.Out.Comment("ERROR: No loop variable found for " + raw)
		return
	}
	if item.Value != nil && strings.HasPrefix(item.Value.ElementReference, "$Loop.") && !inLoop {
		rc.Out.Comment("ERROR: No loop variable found for " + item.Value.ElementReference)
		return
	}
	target := rc.resolve(raw)
	value, ok := formatValue(item.Value, "'", rc.resolve)
	if !ok {
		value = "unknown"
	}

	switch item.Operator {
	case "", "Assign":
		rc.Out.Writef("%s = %s;", target, value)
	case "Add":
		if isCollection(rc, raw, target) {
			rc.Out.Writef("%s.add(%s);", target, value)
			return
		}
		rc.Out.Writef("%s += %s;", target, value)
	case "Subtract":
		rc.Out.Writef("%s -= %s;", target, value)
	case "AddAtStart":
		rc.Out.Writef("%s.add(0, %s);", target, value)
	case "RemoveAll":
		rc.Out.Writef("%s.removeAll(%s);", target, value)
	case "RemoveFirst":
		rc.Out.Writef("%s.remove(%s.indexOf(%s));", target, target, value)
	default:
		rc.Out.Writef("%s = %s; // %s", target, value, item.Operator)
	}
}

func hasCollectionSuffix(name string) bool {
	for _, s := range collectionSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func isCollection(rc *Context, raw, target string) bool {
	if rc.Env != nil {
		if t, ok := rc.Env.TypeOf(raw); ok {
			return strings.HasPrefix(t, "List<") || strings.HasPrefix(t, "Set<")
		}
	}
	return hasCollectionSuffix(target)
}
