// Package render holds the per-kind renderers for terminal flow elements.
// Renderers write only through the output buffer of the Context they are
// given and never follow connectors themselves.
package render

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/rendis/flowscript/internal/emit"
	"github.com/rendis/flowscript/internal/symbols"
	"github.com/rendis/flowscript/pkg/schema"
)

// Resolver rewrites a raw flow reference into its pseudocode form.
type Resolver func(ref string) string

// Context is everything a renderer may read or write while rendering one
// element.
type Context struct {
	Out     *emit.Buffer
	Env     *symbols.Env
	Loops   *symbols.LoopStack
	Resolve Resolver
	Lookup  func(name string) (*schema.Element, bool)
	Logger  *slog.Logger
}

// Renderer emits the statements for one element kind.
type Renderer interface {
	Render(rc *Context, el *schema.Element) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(rc *Context, el *schema.Element) error

// Render calls f.
func (f RendererFunc) Render(rc *Context, el *schema.Element) error { return f(rc, el) }

// LoopVariable returns the innermost loop variable, if a loop is open.
func (rc *Context) LoopVariable() (string, bool) {
	if rc.Loops == nil {
		return "", false
	}
	top, ok := rc.Loops.Top()
	return top.Variable, ok
}

func (rc *Context) resolve(ref string) string {
	if rc.Resolve == nil {
		return ref
	}
	return rc.Resolve(ref)
}

// Header writes the blank line, name comment and optional description that
// precede most elements.
func Header(out *emit.Buffer, el *schema.Element) {
	out.Blank()
	out.Comment(el.DisplayName())
	if d := strings.TrimSpace(el.Description); d != "" {
		out.Comment("Description: " + d)
	}
}

// formatValue renders v as pseudocode. References go through resolve and
// string literals are wrapped in quote. The second result is false when v
// carries nothing.
func formatValue(v *schema.Value, quote string, resolve Resolver) (string, bool) {
	if v.IsZero() {
		return "", false
	}
	switch {
	case v.ElementReference != "":
		if resolve != nil {
			return resolve(v.ElementReference), true
		}
		return v.ElementReference, true
	case v.StringValue != nil:
		return quote + *v.StringValue + quote, true
	case v.BooleanValue != nil:
		if *v.BooleanValue {
			return "true", true
		}
		return "false", true
	case v.NumberValue != nil:
		return *v.NumberValue, true
	case v.DateValue != nil:
		return quote + *v.DateValue + quote, true
	default:
		return quote + *v.DateTimeValue + quote, true
	}
}

var mergeField = regexp.MustCompile(`\{!([^}]+)\}`)

// mergeFields replaces every {!ref} merge field with the resolved reference.
func (rc *Context) mergeFields(s string) string {
	return mergeField.ReplaceAllStringFunc(s, func(m string) string {
		return rc.resolve(strings.TrimSpace(m[2 : len(m)-1]))
	})
}
