package transpile

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type logicKind int

const (
	logicIndex logicKind = iota
	logicAnd
	logicOr
	logicNot
	logicOpen
	logicClose
)

type logicToken struct {
	kind  logicKind
	index int
}

// tokenizeLogic splits custom condition logic such as "1 AND (2 OR NOT(3))"
// into tokens. Indexes must be in [1, n].
func tokenizeLogic(logic string, n int) ([]logicToken, error) {
	var tokens []logicToken
	runes := []rune(logic)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, logicToken{kind: logicOpen})
			i++
		case r == ')':
			tokens = append(tokens, logicToken{kind: logicClose})
			i++
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			idx, _ := strconv.Atoi(string(runes[i:j]))
			if idx < 1 || idx > n {
				return nil, fmt.Errorf("condition %d out of range 1..%d", idx, n)
			}
			tokens = append(tokens, logicToken{kind: logicIndex, index: idx})
			i = j
		case unicode.IsLetter(r):
			j := i
			for j < len(runes) && unicode.IsLetter(runes[j]) {
				j++
			}
			word := strings.ToUpper(string(runes[i:j]))
			switch word {
			case "AND":
				tokens = append(tokens, logicToken{kind: logicAnd})
			case "OR":
				tokens = append(tokens, logicToken{kind: logicOr})
			case "NOT":
				tokens = append(tokens, logicToken{kind: logicNot})
			default:
				return nil, fmt.Errorf("unexpected word %q", word)
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty logic")
	}
	return tokens, nil
}

// logicExpr renders tokens as an expr-lang boolean expression over c1..cN.
func logicExpr(tokens []logicToken) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		switch tok.kind {
		case logicIndex:
			parts[i] = "c" + strconv.Itoa(tok.index)
		case logicAnd:
			parts[i] = "&&"
		case logicOr:
			parts[i] = "||"
		case logicNot:
			parts[i] = "!"
		case logicOpen:
			parts[i] = "("
		case logicClose:
			parts[i] = ")"
		}
	}
	return strings.Join(parts, " ")
}

// customLogic validates the logic by compiling and evaluating it with every
// condition true, then substitutes each index with its condition.
func (w *walker) customLogic(logic string, conds []string) (string, error) {
	tokens, err := tokenizeLogic(logic, len(conds))
	if err != nil {
		return "", err
	}
	src := logicExpr(tokens)
	vars := make(map[string]bool, len(conds))
	for i := range conds {
		vars["c"+strconv.Itoa(i+1)] = true
	}
	if _, err := w.t.logic.Predicate(w.ctx, src, vars); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, tok := range tokens {
		switch tok.kind {
		case logicIndex:
			sb.WriteString("(" + conds[tok.index-1] + ")")
		case logicAnd:
			sb.WriteString(" && ")
		case logicOr:
			sb.WriteString(" || ")
		case logicNot:
			sb.WriteString("!")
		case logicOpen:
			sb.WriteString("(")
		case logicClose:
			sb.WriteString(")")
		}
	}
	return sb.String(), nil
}
