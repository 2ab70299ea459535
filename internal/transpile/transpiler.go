// Package transpile turns a parsed flow graph into block-structured
// pseudocode. A Transpiler is safe for concurrent use; every call to
// Transpile builds its own walker state and output buffer.
package transpile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/flowscript/internal/emit"
	"github.com/rendis/flowscript/internal/expressions"
	"github.com/rendis/flowscript/internal/logging"
	"github.com/rendis/flowscript/internal/render"
	"github.com/rendis/flowscript/internal/symbols"
	"github.com/rendis/flowscript/pkg/schema"
)

// Severity levels for diagnostics.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Diagnostic is a recoverable problem found while transpiling. Fatal
// problems are returned as errors instead.
type Diagnostic struct {
	Severity string      `json:"severity"`
	Code     string      `json:"code"`
	Kind     schema.Kind `json:"kind,omitempty"`
	Element  string      `json:"element,omitempty"`
	Path     []string    `json:"path,omitempty"`
	Message  string      `json:"message"`
}

// Stats summarizes a run.
type Stats struct {
	Elements   int           `json:"elements"`
	Procedures int           `json:"procedures"`
	Lines      int           `json:"lines"`
	Duration   time.Duration `json:"duration"`
}

// Result is the outcome of a successful run.
type Result struct {
	RunID       string       `json:"run_id"`
	Code        string       `json:"code"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Stats       Stats        `json:"stats"`
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Config holds the collaborators of a Transpiler. Zero values get defaults.
type Config struct {
	Registry    *render.Registry
	Logic       *expressions.ExprEngine
	Logger      *slog.Logger
	IndentWidth int
}

// Transpiler converts flows to pseudocode.
type Transpiler struct {
	registry    *render.Registry
	logic       *expressions.ExprEngine
	logger      *slog.Logger
	indentWidth int
}

// New creates a Transpiler from cfg.
func New(cfg Config) *Transpiler {
	t := &Transpiler{
		registry:    cfg.Registry,
		logic:       cfg.Logic,
		logger:      cfg.Logger,
		indentWidth: cfg.IndentWidth,
	}
	if t.registry == nil {
		t.registry = render.NewDefaultRegistry()
	}
	if t.logic == nil {
		t.logic = expressions.NewExprEngine()
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.indentWidth <= 0 {
		t.indentWidth = emit.DefaultIndentWidth
	}
	return t
}

// Transpile renders flow as pseudocode. A missing start element, an unnamed
// decision or a cancelled context abort the run with an error; everything
// else is reported through Result.Diagnostics.
func (t *Transpiler) Transpile(ctx context.Context, flow *schema.Flow) (*Result, error) {
	if flow == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "flow is nil")
	}
	started := time.Now()

	runID := logging.RunID(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = logging.WithRunID(ctx, runID)
	}
	ctx = logging.WithFlow(ctx, flow.Label)
	logger := logging.LogWith(ctx, t.logger)

	if flow.Start == nil {
		return nil, schema.NewError(schema.ErrCodeMissingStart, "flow has no start element").
			WithElement(schema.KindStart, "")
	}

	w := t.newWalker(ctx, flow, logger)
	if err := w.run(); err != nil {
		logger.Warn("transpile aborted", slog.String("error", err.Error()))
		return nil, err
	}
	if err := checkBalanced(w.out); err != nil {
		return nil, err
	}

	code := w.out.Render()
	res := &Result{
		RunID:       runID,
		Code:        code,
		Diagnostics: w.diags,
		Stats: Stats{
			Elements:   len(w.processed),
			Procedures: w.out.ProcedureCount(),
			Lines:      strings.Count(code, "\n"),
			Duration:   time.Since(started),
		},
	}
	logger.Debug("transpile complete",
		slog.Int("elements", res.Stats.Elements),
		slog.Int("procedures", res.Stats.Procedures),
		slog.Int("diagnostics", len(res.Diagnostics)),
	)
	return res, nil
}

// checkBalanced fails when a write was rejected or a run left a procedure
// or an indentation scope open.
func checkBalanced(out *emit.Buffer) error {
	if err := out.Err(); err != nil {
		return schema.NewError(schema.ErrCodeOutput, "unbalanced output").WithCause(err)
	}
	if out.InProcedure() || out.Depth() != 0 {
		return schema.NewErrorf(schema.ErrCodeOutput,
			"unbalanced output: depth %d, procedure open %t", out.Depth(), out.InProcedure())
	}
	return nil
}

func (t *Transpiler) newWalker(ctx context.Context, flow *schema.Flow, logger *slog.Logger) *walker {
	w := &walker{
		ctx:       ctx,
		t:         t,
		flow:      flow,
		elements:  schema.NewElementMap(flow),
		out:       emit.NewBuffer(emit.WithIndentWidth(t.indentWidth)),
		env:       symbols.NewEnv(),
		loops:     &symbols.LoopStack{},
		processed: make(map[string]bool),
		gotos:     make(map[string]bool),
		promoted:  make(map[string]bool),
		logger:    logger,
	}
	w.rc = &render.Context{
		Out:     w.out,
		Env:     w.env,
		Loops:   w.loops,
		Resolve: w.resolve,
		Lookup:  w.elements.Find,
		Logger:  logger,
	}
	return w
}
