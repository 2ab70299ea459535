package render

import "strings"

var operatorSymbols = map[string]string{
	"EqualTo":              "==",
	"NotEqualTo":           "!=",
	"GreaterThan":          ">",
	"LessThan":             "<",
	"GreaterThanOrEqualTo": ">=",
	"LessThanOrEqualTo":    "<=",
	"Contains":             ".contains",
	"StartsWith":           ".startsWith",
	"EndsWith":             ".endsWith",
	"Includes":             ".contains",
	"Excludes":             "!contains",
	"IsNull":               "== null",
	"IsNotNull":            "!= null",
	"IsChanged":            "!=",
	"IsNew":                ".isNew()",
	"IsDeleted":            ".isDeleted()",
}

// Operator maps a flow operator to its pseudocode symbol. Unknown operators
// pass through unchanged.
func Operator(op string) string {
	if sym, ok := operatorSymbols[op]; ok {
		return sym
	}
	return op
}

// SOQLOperator maps a flow operator for use inside a query WHERE clause.
func SOQLOperator(op string) string {
	sym := Operator(op)
	if sym == "==" {
		return "="
	}
	return sym
}

// FormatCondition renders `left op right` with the operator's shape.
func FormatCondition(left, op, right string) string {
	switch op {
	case "IsNull":
		if right == "false" {
			return left + " != null"
		}
		return left + " == null"
	case "IsNotNull":
		return left + " != null"
	case "IsChanged":
		old := left
		if rest, ok := strings.CutPrefix(left, "record."); ok {
			old = "oldRecord." + rest
		}
		return left + " != " + old
	case "IsNew", "IsDeleted":
		return left + Operator(op)
	case "Excludes":
		return "!" + left + ".contains(" + right + ")"
	case "Contains", "StartsWith", "EndsWith", "Includes":
		return left + Operator(op) + "(" + right + ")"
	default:
		return left + " " + Operator(op) + " " + right
	}
}
