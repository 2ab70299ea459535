package expressions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rendis/flowscript/pkg/schema"
)

// Interpolate resolves ${{path}} references in a message template against
// scope, e.g. "${{element.name}} queries inside ${{element.loop}}". Paths are
// dot-delimited and must start with a top-level scope key.
func Interpolate(template string, scope map[string]any) (string, error) {
	if !HasInterpolation(template) {
		return template, nil
	}

	var result strings.Builder
	result.Grow(len(template))

	i := 0
	for i < len(template) {
		idx := strings.Index(template[i:], "${{")
		if idx == -1 {
			result.WriteString(template[i:])
			break
		}

		result.WriteString(template[i : i+idx])
		start := i + idx + 3

		end := strings.Index(template[start:], "}}")
		if end == -1 {
			return "", schema.NewError(schema.ErrCodeExpression, "unclosed ${{ expression")
		}
		end += start

		path := strings.TrimSpace(template[start:end])
		if path == "" {
			return "", schema.NewError(schema.ErrCodeExpression, "empty variable reference: ${{  }}")
		}

		val, err := traversePath(scope, path)
		if err != nil {
			return "", err
		}
		result.WriteString(inline(val))

		i = end + 2
	}

	return result.String(), nil
}

// HasInterpolation checks if a template contains any ${{...}} references.
func HasInterpolation(s string) bool {
	return strings.Contains(s, "${{")
}

// traversePath navigates into nested maps using a dot-delimited path.
func traversePath(root map[string]any, path string) (any, error) {
	segments := strings.Split(path, ".")
	var current any = root

	for i, seg := range segments {
		if seg == "" {
			return nil, schema.NewErrorf(schema.ErrCodeExpression,
				"empty segment in path %q at position %d", path, i).
				WithDetails(map[string]any{"expression": path})
		}

		v, ok := current.(map[string]any)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeExpression,
				"cannot traverse into non-object at %q in %q (type: %T)", seg, path, current).
				WithDetails(map[string]any{"expression": path})
		}
		val, ok := v[seg]
		if !ok {
			available := mapKeys(v)
			return nil, schema.NewErrorf(schema.ErrCodeExpression,
				"field %q not found in %q; available: [%s]", seg, path, strings.Join(available, ", ")).
				WithDetails(map[string]any{"expression": path, "available_fields": available})
		}
		current = val
	}

	return current, nil
}

// inline converts a resolved value into message text. Strings are embedded
// as is; maps and slices are JSON-encoded.
func inline(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case nil:
		return "null"
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
