package render

import (
	"strings"

	"github.com/rendis/flowscript/pkg/schema"
)

func renderFormula(rc *Context, el *schema.Element) error {
	if el.Name == "" {
		return schema.MissingField(el.Kind, "", "name")
	}
	spec := el.Formula
	if spec == nil || spec.DataType == "" {
		return schema.MissingField(el.Kind, el.Name, "data type")
	}
	if strings.TrimSpace(spec.Expression) == "" {
		return schema.MissingField(el.Kind, el.Name, "expression")
	}
	Header(rc.Out, el)
	rc.Env.Declare(el.Name, spec.DataType)
	rc.Env.DeclareFormula(el.Name)

	rc.Out.Writef("private static %s %s() {", spec.DataType, schema.FormulaFunction(el.Name))
	body := rc.Out.Indent()
	expr := strings.TrimSpace(spec.Expression)
	if args, ok := caseArgs(expr); ok && len(args) >= 3 {
		writeSwitch(rc, args)
	} else {
		rc.Out.Writef("return %s;", rc.mergeFields(expr))
	}
	body.Close()
	rc.Out.Write("}")
	return nil
}

// writeSwitch renders CASE(subject, v1, r1, ..., else) as a switch block.
func writeSwitch(rc *Context, args []string) {
	rc.Out.Writef("switch on %s {", rc.mergeFields(args[0]))
	sw := rc.Out.Indent()
	rest := args[1:]
	for i := 0; i+1 < len(rest); i += 2 {
		rc.Out.Writef("when %s {", rc.mergeFields(rest[i]))
		s := rc.Out.Indent()
		rc.Out.Writef("return %s;", rc.mergeFields(rest[i+1]))
		s.Close()
		rc.Out.Write("}")
	}
	if len(rest)%2 == 1 {
		rc.Out.Write("when else {")
		s := rc.Out.Indent()
		rc.Out.Writef("return %s;", rc.mergeFields(rest[len(rest)-1]))
		s.Close()
		rc.Out.Write("}")
	}
	sw.Close()
	rc.Out.Write("}")
}

// caseArgs returns the top-level arguments of a CASE(...) call.
func caseArgs(expr string) ([]string, bool) {
	upper := strings.ToUpper(expr)
	if !strings.HasPrefix(upper, "CASE") {
		return nil, false
	}
	rest := strings.TrimSpace(expr[4:])
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return nil, false
	}
	return splitArgs(rest[1 : len(rest)-1]), true
}

// splitArgs splits on commas that are outside parentheses and quotes.
func splitArgs(s string) []string {
	var (
		args  []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(args, strings.TrimSpace(s[start:]))
}
