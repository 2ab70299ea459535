package store

import (
	"encoding/json"
	"time"

	"github.com/rendis/flowscript/internal/source"
	"github.com/rendis/flowscript/internal/transpile"
)

// Triggers record what started a run.
const (
	TriggerCLI       = "cli"
	TriggerScheduler = "scheduler"
	TriggerMCP       = "mcp"
	TriggerWatch     = "watch"
)

// Run is one persisted transpile result.
type Run struct {
	ID             string          `json:"id"`
	FlowLabel      string          `json:"flow_label"`
	SourcePath     string          `json:"source_path,omitempty"`
	SourceHash     string          `json:"source_hash,omitempty"`
	ProcessType    string          `json:"process_type,omitempty"`
	Trigger        string          `json:"trigger"`
	Output         string          `json:"output"`
	Diagnostics    json.RawMessage `json:"diagnostics,omitempty"`
	ElementCount   int             `json:"element_count"`
	ProcedureCount int             `json:"procedure_count"`
	DurationMs     int64           `json:"duration_ms"`
	CreatedAt      time.Time       `json:"created_at"`
}

// RunFilter specifies criteria for listing runs. Zero fields match all.
type RunFilter struct {
	FlowLabel  string     `json:"flow_label,omitempty"`
	SourcePath string     `json:"source_path,omitempty"`
	Trigger    string     `json:"trigger,omitempty"`
	Since      *time.Time `json:"since,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// NewRun builds a Run from a transpile result. doc may be nil for content
// that did not come from a file.
func NewRun(doc *source.Document, res *transpile.Result, trigger string) (*Run, error) {
	run := &Run{
		ID:             res.RunID,
		Trigger:        trigger,
		Output:         res.Code,
		ElementCount:   res.Stats.Elements,
		ProcedureCount: res.Stats.Procedures,
		DurationMs:     res.Stats.Duration.Milliseconds(),
	}
	if len(res.Diagnostics) > 0 {
		diags, err := json.Marshal(res.Diagnostics)
		if err != nil {
			return nil, err
		}
		run.Diagnostics = diags
	}
	if doc != nil {
		run.SourcePath = doc.Path
		run.SourceHash = doc.Hash
		if doc.Flow != nil {
			run.FlowLabel = doc.Flow.Label
			run.ProcessType = doc.Flow.ProcessType
		}
	}
	return run, nil
}

// DiagnosticList decodes the stored diagnostics.
func (r *Run) DiagnosticList() ([]transpile.Diagnostic, error) {
	if len(r.Diagnostics) == 0 {
		return nil, nil
	}
	var out []transpile.Diagnostic
	if err := json.Unmarshal(r.Diagnostics, &out); err != nil {
		return nil, err
	}
	return out, nil
}
