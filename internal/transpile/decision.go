package transpile

import (
	"github.com/rendis/flowscript/internal/render"
	"github.com/rendis/flowscript/pkg/schema"
)

// buildDecision writes the if / else-if chain for a decision. The default
// outcome is rendered into a capture first so that an empty default leaves
// no dangling else.
func (w *walker) buildDecision(el *schema.Element) (bool, error) {
	if el.Name == "" {
		return true, schema.NewError(schema.ErrCodeValidation, "decision has no name").
			WithElement(schema.KindDecision, "").
			WithDetails(map[string]any{"path": w.pathString()})
	}
	render.Header(w.out, el)
	w.out.Comment("Decision - " + el.Name)

	opened := false
	if el.Decision != nil {
		for _, rule := range el.Decision.Rules {
			if len(rule.Conditions) == 0 {
				continue
			}
			cond := w.ruleCondition(el, rule)
			if opened {
				w.out.Writef("} else if (%s) {", cond)
			} else {
				w.out.Writef("if (%s) {", cond)
			}
			opened = true

			scope := w.out.Indent()
			err := w.follow(rule.Connector)
			scope.Close()
			if err != nil {
				return true, err
			}
		}
	}

	if !opened {
		return false, w.follow(el.Default)
	}
	if el.Default == nil || el.Default.Target == "" {
		w.out.Write("}")
		return false, nil
	}

	scope := w.out.Indent()
	capture := w.out.Capture()
	err := w.follow(el.Default)
	lines := capture.Lines()
	scope.Close()

	if len(lines) > 0 {
		w.out.Write("} else {")
		w.out.Append(lines)
	}
	w.out.Write("}")
	return false, err
}

func (w *walker) ruleCondition(el *schema.Element, rule schema.Rule) string {
	conds := make([]string, 0, len(rule.Conditions))
	for _, c := range rule.Conditions {
		conds = append(conds, w.formatCondition(c))
	}
	return w.combine(el, rule.ConditionLogic, conds)
}
