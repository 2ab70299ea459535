package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/flowscript/internal/diagram"
	"github.com/rendis/flowscript/internal/logging"
	"github.com/rendis/flowscript/internal/metrics"
	"github.com/rendis/flowscript/internal/source"
	"github.com/rendis/flowscript/internal/store"
)

const defaultHistoryLimit = 20

// handleTranspile converts a flow into pseudocode.
func (s *FlowscriptServer) handleTranspile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, errResult := parseSource(req)
	if errResult != nil {
		return errResult, nil
	}

	ctx = logging.WithFlow(ctx, doc.Flow.Label)
	res, err := s.transpiler.Transpile(ctx, doc.Flow)
	metrics.ObserveTranspile(res, err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("transpile failed: %v", err)), nil
	}

	if req.GetBool("save", s.saveRuns) && s.store != nil {
		run, runErr := store.NewRun(doc, res, store.TriggerMCP)
		if runErr == nil {
			runErr = s.store.SaveRun(ctx, run)
		}
		if runErr != nil {
			logging.LogWith(ctx, s.logger).Warn("failed to save run", "error", runErr)
			s.notifier.Notify(LevelWarning, map[string]any{"event": "run_not_saved", "run_id": res.RunID, "error": runErr.Error()})
		}
	}

	return marshalResult(res)
}

// handleValidate reports structural errors and warnings.
func (s *FlowscriptServer) handleValidate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, errResult := parseSource(req)
	if errResult != nil {
		return errResult, nil
	}

	result := s.validator.Validate(doc.Flow)
	return marshalResult(map[string]any{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

// handleDiagram renders a flow diagram in the requested format.
func (s *FlowscriptServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "ascii" && format != "mermaid" && format != "image" {
		return mcp.NewToolResultError("format must be ascii, mermaid, or image"), nil
	}

	doc, errResult := parseSource(req)
	if errResult != nil {
		return errResult, nil
	}

	var marks map[string]diagram.Mark
	if req.GetBool("marks", true) {
		// A fatal transpile error leaves the diagram unmarked; Build reports
		// the structural problem itself.
		if res, trErr := s.transpiler.Transpile(ctx, doc.Flow); trErr == nil {
			marks = diagram.MarksFromDiagnostics(res.Diagnostics)
		}
	}

	model, buildErr := diagram.Build(doc.Flow, marks)
	if buildErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diagram build failed: %v", buildErr)), nil
	}

	switch format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	default:
		png, imgErr := diagram.RenderImage(ctx, model)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		encoded := base64.StdEncoding.EncodeToString(png)
		return mcp.NewToolResultImage(model.Title, encoded, "image/png"), nil
	}
}

// handleLint evaluates the current lint rules.
func (s *FlowscriptServer) handleLint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, errResult := parseSource(req)
	if errResult != nil {
		return errResult, nil
	}

	findings, err := s.linter().Lint(ctx, doc.Flow)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lint failed: %v", err)), nil
	}
	return marshalResult(map[string]any{
		"flow":     doc.Flow.Label,
		"findings": findings,
		"count":    len(findings),
	})
}

// handleHistory lists stored runs, or returns one run by id.
func (s *FlowscriptServer) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("run history is not enabled"), nil
	}

	if id := req.GetString("run_id", ""); id != "" {
		run, err := s.store.GetRun(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run lookup failed: %v", err)), nil
		}
		return marshalResult(run)
	}

	limit := req.GetInt("limit", defaultHistoryLimit)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	runs, err := s.store.ListRuns(ctx, store.RunFilter{
		FlowLabel:  req.GetString("flow_label", ""),
		SourcePath: req.GetString("source_path", ""),
		Limit:      limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history query failed: %v", err)), nil
	}

	if !req.GetBool("include_output", false) {
		for _, r := range runs {
			r.Output = ""
		}
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	return marshalResult(map[string]any{"runs": runs, "count": len(runs)})
}

// parseSource decodes the content argument. A non-nil result is a tool
// error to hand back to the client.
func parseSource(req mcp.CallToolRequest) (*source.Document, *mcp.CallToolResult) {
	content, err := req.RequireString("content")
	if err != nil || content == "" {
		return nil, mcp.NewToolResultError("content is required")
	}
	format := source.Format(req.GetString("source_format", string(source.FormatXML)))

	doc, err := source.Parse([]byte(content), format)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err))
	}
	return doc, nil
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
