package transpile

import (
	"fmt"
	"strings"

	"github.com/rendis/flowscript/internal/render"
	"github.com/rendis/flowscript/pkg/schema"
)

func (w *walker) formatCondition(c schema.Condition) string {
	left := "unknown"
	if ref := strings.TrimSpace(c.LeftValueReference); ref != "" {
		left = w.resolve(ref)
	}
	op := c.Operator
	if op == "" {
		op = "EqualTo"
	}
	return render.FormatCondition(left, op, w.operand(c.RightValue, "unknown"))
}

// formatFilter renders a start entry criterion against the triggering
// record.
func (w *walker) formatFilter(f schema.Filter) string {
	return render.FormatCondition("record."+f.Field, f.Operator, w.operand(f.Value, "true"))
}

// operand renders the right-hand side of a comparison. Strings and dates are
// single-quoted, booleans lowercase and references resolved.
func (w *walker) operand(v *schema.Value, missing string) string {
	switch {
	case v.IsZero():
		return missing
	case v.ElementReference != "":
		return w.resolve(v.ElementReference)
	case v.StringValue != nil:
		return "'" + *v.StringValue + "'"
	case v.BooleanValue != nil:
		return fmt.Sprintf("%t", *v.BooleanValue)
	case v.NumberValue != nil:
		return *v.NumberValue
	case v.DateValue != nil:
		return "'" + *v.DateValue + "'"
	default:
		return "'" + *v.DateTimeValue + "'"
	}
}

// combine joins conditions with the given logic: "and" (the default), "or"
// or a custom expression over condition indexes. Malformed custom logic
// falls back to "and".
func (w *walker) combine(el *schema.Element, logic string, conds []string) string {
	switch strings.ToLower(strings.TrimSpace(logic)) {
	case "", "and":
		return strings.Join(conds, " && ")
	case "or":
		return strings.Join(conds, " || ")
	}
	out, err := w.customLogic(logic, conds)
	if err != nil {
		w.report(SeverityWarning, schema.ErrCodeExpression, el,
			fmt.Sprintf("invalid condition logic %q, joining with &&: %v", logic, err))
		return strings.Join(conds, " && ")
	}
	return out
}
