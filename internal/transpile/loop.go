package transpile

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/rendis/flowscript/internal/render"
	"github.com/rendis/flowscript/internal/symbols"
	"github.com/rendis/flowscript/pkg/schema"
)

// buildLoop writes a for-each block over the loop's collection, emits the
// body with the loop context pushed and then follows the after-loop chain.
func (w *walker) buildLoop(el *schema.Element) (bool, error) {
	render.Header(w.out, el)
	spec := el.Loop
	if spec == nil || strings.TrimSpace(spec.CollectionReference) == "" {
		msg := "No collection reference found for loop " + el.DisplayName()
		w.out.Comment("ERROR: " + msg)
		w.report(SeverityError, schema.ErrCodeMissingField, el, msg)
		return true, nil
	}

	coll := strings.TrimSpace(spec.CollectionReference)
	typ := w.loopElementType(coll)
	v := LoopVariable(coll)
	w.env.DeclareLoopVariable(el.Name, v)
	w.logger.Debug("loop", slog.String("loop", el.Name), slog.String("variable", v), slog.String("type", typ))

	w.out.Comment("Loop - " + el.Name)
	w.out.Writef("for (%s %s : %s) {", typ, v, coll)
	body := w.out.Indent()
	w.out.Comment("Start of loop block")
	err := w.loopBody(el, symbols.LoopContext{ID: el.Key(), Variable: v, Collection: coll}, typ)
	body.Close()
	w.out.Write("}")
	if err != nil {
		return true, err
	}
	return false, w.follow(spec.NoMoreValues)
}

func (w *walker) loopBody(el *schema.Element, lc symbols.LoopContext, typ string) error {
	next := el.Loop.NextValue
	if next == nil || next.Target == "" {
		w.out.Comment("Process " + typ + " record")
		return nil
	}
	if _, ok := w.target(next); !ok {
		w.out.Comment("Process " + typ + " record")
		return nil
	}
	defer w.loops.Enter(lc)()
	return w.follow(next)
}

// loopElementType infers the type of one item of coll.
func (w *walker) loopElementType(coll string) string {
	if t, ok := w.env.ElementType(coll); ok {
		return t
	}
	for _, el := range w.flow.Elements {
		if el.Kind != schema.KindRecordLookup || el.Lookup == nil || el.Lookup.Object == "" {
			continue
		}
		if render.LookupOutput(el) == coll {
			w.env.Declare(coll, "List<"+el.Lookup.Object+">")
			return el.Lookup.Object
		}
	}
	return "SObject"
}

// LoopVariable derives the iteration variable for a collection: the first
// character left after removing underscores, lowercased. An empty result
// yields "item".
func LoopVariable(collection string) string {
	for _, r := range strings.ReplaceAll(collection, "_", "") {
		return string(unicode.ToLower(r))
	}
	return "item"
}
