package transpile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rendis/flowscript/internal/emit"
	"github.com/rendis/flowscript/internal/render"
	"github.com/rendis/flowscript/internal/symbols"
	"github.com/rendis/flowscript/pkg/schema"
)

// walker is the per-run traversal state. It is never shared between runs.
type walker struct {
	ctx      context.Context
	t        *Transpiler
	flow     *schema.Flow
	elements schema.ElementMap
	out      *emit.Buffer
	env      *symbols.Env
	loops    *symbols.LoopStack
	rc       *render.Context
	logger   *slog.Logger

	processed map[string]bool
	path      []string
	gotos     map[string]bool
	promoted  map[string]bool
	diags     []Diagnostic
}

func (w *walker) run() error {
	w.scanGotos()
	w.writeHeader()
	return w.processStart(w.flow.Start)
}

// scanGotos collects the targets of every goto-marked connector. Fault
// connectors never promote their target.
func (w *walker) scanGotos() {
	scan := func(el *schema.Element) {
		for _, edge := range el.Edges() {
			c := edge.Connector
			if c == el.Fault || c.Kind == schema.ConnectorFault || !c.IsGoTo {
				continue
			}
			w.gotos[c.Target] = true
		}
	}
	if w.flow.Start != nil {
		scan(w.flow.Start)
	}
	for _, el := range w.flow.Elements {
		scan(el)
	}
	if len(w.gotos) > 0 {
		w.logger.Debug("goto targets found", slog.Int("count", len(w.gotos)))
	}
}

// traverse emits el and everything reachable from it.
func (w *walker) traverse(el *schema.Element) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	key := el.Key()
	if top, ok := w.loops.Top(); ok && top.ID == key {
		w.logger.Debug("loop back-edge", slog.String("loop", el.Name))
		return nil
	}
	if w.processed[key] {
		w.logger.Debug("element already emitted", slog.String("element", el.Name), slog.String("path", w.pathString()))
		return nil
	}
	w.processed[key] = true

	w.path = append(w.path, el.DisplayName())
	defer func() { w.path = w.path[:len(w.path)-1] }()

	w.logger.Debug("emit element", slog.String("element", el.Name), slog.String("kind", string(el.Kind)))

	if w.gotos[el.Name] && !w.promoted[el.Name] {
		w.promoted[el.Name] = true
		return w.promote(el)
	}

	stop, err := w.emit(el)
	if err != nil || stop {
		return err
	}
	return w.continueFrom(el)
}

// emit dispatches el to its builder or renderer. stop reports that the
// element's continuation must not be followed.
func (w *walker) emit(el *schema.Element) (stop bool, err error) {
	switch el.Kind {
	case schema.KindDecision:
		return w.buildDecision(el)
	case schema.KindLoop:
		return w.buildLoop(el)
	case schema.KindStart:
		w.logger.Debug("connector back to start ignored", slog.String("path", w.pathString()))
		return true, nil
	case schema.KindActionCall, schema.KindSubflow, schema.KindRecordLookup, schema.KindRecordCreate,
		schema.KindRecordUpdate, schema.KindRecordDelete, schema.KindAssignment, schema.KindFormula,
		schema.KindScreen, schema.KindTextTemplate:
		return w.renderElement(el), nil
	default:
		w.report(SeverityWarning, schema.ErrCodeUnknownKind, el, fmt.Sprintf("unknown element kind %q", el.Kind))
		return true, nil
	}
}

func (w *walker) renderElement(el *schema.Element) (stop bool) {
	r, ok := w.t.registry.Get(el.Kind)
	if !ok {
		w.report(SeverityWarning, schema.ErrCodeUnknownKind, el, fmt.Sprintf("no renderer for %s", el.Kind))
		return true
	}
	if err := r.Render(w.rc, el); err != nil {
		w.renderFailed(el, err)
		return true
	}
	return false
}

// renderFailed replaces the element's output with an inline error comment.
func (w *walker) renderFailed(el *schema.Element, err error) {
	code := schema.ErrCodeValidation
	msg := err.Error()
	var te *schema.TranspileError
	if errors.As(err, &te) {
		code = te.Code
		msg = te.Message
		if te.Element != "" {
			msg = fmt.Sprintf("%s %s: %s", te.Kind, te.Element, te.Message)
		}
	}
	w.out.Comment("ERROR: " + msg)
	w.report(SeverityError, code, el, msg)
}

// promote renders el as a named procedure and calls it in place. The
// continuation stays with the caller.
func (w *walker) promote(el *schema.Element) error {
	stop, err := w.emitProcedure(el)
	if err != nil {
		return err
	}
	w.out.Writef("%s();", el.Name)
	if stop {
		return nil
	}
	return w.continueFrom(el)
}

func (w *walker) emitProcedure(el *schema.Element) (stop bool, err error) {
	values := returnValues(el)
	ret := ""
	if len(values) == 1 {
		ret = w.returnType(el, values[0])
	}

	w.out.OpenProcedure(el.Name, ret)
	defer w.out.CloseProcedure()

	if len(values) > 1 {
		w.out.Comment("Returns: " + strings.Join(values, ", "))
	}
	stop, err = w.emit(el)
	if err == nil && !stop && len(values) == 1 {
		w.out.Writef("return %s;", values[0])
	}
	return stop, err
}

// returnValues lists the variables a promoted element hands back to its
// caller. Only record lookups produce values.
func returnValues(el *schema.Element) []string {
	if el.Kind != schema.KindRecordLookup || el.Lookup == nil {
		return nil
	}
	var values []string
	if el.Lookup.OutputReference != "" {
		values = append(values, el.Lookup.OutputReference)
	}
	for _, oa := range el.Lookup.OutputAssignments {
		if oa.AssignToReference != "" {
			values = append(values, oa.AssignToReference)
		}
	}
	return values
}

func (w *walker) returnType(el *schema.Element, value string) string {
	if spec := el.Lookup; spec != nil && spec.Object != "" && value == spec.OutputReference {
		if spec.GetFirstRecordOnly {
			return spec.Object
		}
		return "List<" + spec.Object + ">"
	}
	if t, ok := w.env.TypeOf(value); ok {
		return t
	}
	return "Object"
}

// continueFrom follows el's normal continuation, wrapped in try/catch when
// the element has a fault path. Decisions never continue through Default.
func (w *walker) continueFrom(el *schema.Element) error {
	next := el.Connector
	if next == nil && el.Kind != schema.KindDecision {
		next = el.Default
	}
	if el.Fault == nil {
		return w.follow(next)
	}

	w.out.Write("try {")
	scope := w.out.Indent()
	err := w.follow(next)
	scope.Close()
	if err != nil {
		return err
	}
	w.out.Write("} catch (Exception e) {")
	scope = w.out.Indent()
	err = w.follow(el.Fault)
	scope.Close()
	w.out.Write("}")
	return err
}

// follow continues along c. A connector back to the innermost open loop
// ends the body; other promoted targets are called instead of re-emitted.
func (w *walker) follow(c *schema.Connector) error {
	target, ok := w.target(c)
	if !ok {
		return nil
	}
	if top, open := w.loops.Top(); open && top.ID == target.Key() {
		w.logger.Debug("loop back-edge", slog.String("loop", target.Name))
		return nil
	}
	if w.promoted[target.Name] {
		w.out.Writef("%s();", target.Name)
		return nil
	}
	return w.traverse(target)
}

// target resolves a connector's target element, reporting dangling
// connectors.
func (w *walker) target(c *schema.Connector) (*schema.Element, bool) {
	if c == nil || c.Target == "" {
		return nil, false
	}
	el, ok := w.elements.Find(c.Target)
	if !ok {
		w.logger.Error("connector target not found", slog.String("target", c.Target), slog.String("path", w.pathString()))
		w.report(SeverityWarning, schema.ErrCodeNotFound, nil, fmt.Sprintf("connector target %q not found", c.Target))
		return nil, false
	}
	return el, true
}

func (w *walker) report(severity, code string, el *schema.Element, msg string) {
	d := Diagnostic{
		Severity: severity,
		Code:     code,
		Path:     append([]string(nil), w.path...),
		Message:  msg,
	}
	if el != nil {
		d.Kind = el.Kind
		d.Element = el.Name
	}
	w.diags = append(w.diags, d)
	w.logger.Warn(msg,
		slog.String("code", code),
		slog.String("element", d.Element),
		slog.String("path", w.pathString()),
	)
}

func (w *walker) pathString() string {
	return strings.Join(w.path, " > ")
}
