package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/flowscript/internal/lint"
	"github.com/rendis/flowscript/internal/store"
	"github.com/rendis/flowscript/internal/transpile"
	"github.com/rendis/flowscript/internal/validation"
)

// Version is reported to MCP clients during initialization.
var Version = "dev"

// FlowscriptServerDeps holds the dependencies for creating a FlowscriptServer.
type FlowscriptServerDeps struct {
	Transpiler *transpile.Transpiler
	Validator  validation.Validator
	// Rules supplies the current linter; nil means the built-in rules.
	Rules *lint.RuleLoader
	// Store enables flowscript.history and saved runs; nil disables both.
	Store    store.Store
	SaveRuns bool
	Logger   *slog.Logger
}

// FlowscriptServer wraps an MCP server with flowscript tool handlers.
type FlowscriptServer struct {
	transpiler *transpile.Transpiler
	validator  validation.Validator
	rules      *lint.RuleLoader
	builtin    *lint.Linter
	store      store.Store
	saveRuns   bool
	logger     *slog.Logger
	notifier   Notifier
	mcpServer  *server.MCPServer
}

// NewFlowscriptServer creates a FlowscriptServer with all 5 tools registered.
func NewFlowscriptServer(deps FlowscriptServerDeps) (*FlowscriptServer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	tr := deps.Transpiler
	if tr == nil {
		tr = transpile.New(transpile.Config{Logger: logger})
	}
	validator := deps.Validator
	if validator == nil {
		validator = validation.NewFlowValidator()
	}

	s := &FlowscriptServer{
		transpiler: tr,
		validator:  validator,
		rules:      deps.Rules,
		store:      deps.Store,
		saveRuns:   deps.SaveRuns,
		logger:     logger,
	}
	if s.rules == nil {
		builtin, err := lint.NewLinter(nil, logger)
		if err != nil {
			return nil, err
		}
		s.builtin = builtin
	}

	mcpSrv := server.NewMCPServer(
		"flowscript",
		Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
		server.WithInstructions("Flowscript turns Salesforce-style flow definitions into Apex-like pseudocode. Pass flow XML or JSON as content. Use flowscript.transpile for pseudocode, flowscript.validate for structural problems, flowscript.diagram for Mermaid, ASCII or PNG diagrams, flowscript.lint for rule findings, and flowscript.history for stored runs."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv)

	if s.rules != nil {
		s.rules.OnChange(func(l *lint.Linter) {
			s.notifier.Notify(LevelInfo, map[string]any{
				"event": "rules_reloaded",
				"rules": len(l.Rules()),
			})
		})
	}
	return s, nil
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *FlowscriptServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FlowscriptServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// linter returns the current rules, following hot reloads.
func (s *FlowscriptServer) linter() *lint.Linter {
	if s.rules != nil {
		return s.rules.Linter()
	}
	return s.builtin
}

// tools returns the 5 registered MCP tools as ServerTool entries.
func (s *FlowscriptServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: transpileTool(), Handler: s.handleTranspile},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: diagramTool(), Handler: s.handleDiagram},
		{Tool: lintTool(), Handler: s.handleLint},
		{Tool: historyTool(), Handler: s.handleHistory},
	}
}

// --- Tool definitions ---

func withSource() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("content", mcp.Required(), mcp.Description("Flow document: flow-meta XML or flowscript JSON")),
		mcp.WithString("source_format",
			mcp.Enum("xml", "json"),
			mcp.Description("Encoding of content (default: xml)"),
		),
	}
}

func transpileTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Transpile a flow into Apex-like pseudocode"),
	}, withSource()...)
	opts = append(opts, mcp.WithBoolean("save", mcp.Description("Store the run in history (default: server setting)")))
	return mcp.NewTool("flowscript.transpile", opts...)
}

func validateTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Check a flow for structural errors and warnings"),
	}, withSource()...)
	return mcp.NewTool("flowscript.validate", opts...)
}

func diagramTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Generate a diagram of a flow. Returns Mermaid flowchart syntax, ASCII art, or a PNG image"),
	}, withSource()...)
	opts = append(opts,
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("mermaid", "ascii", "image"),
			mcp.Description("Output format: mermaid (flowchart syntax), ascii (text), or image (PNG)"),
		),
		mcp.WithBoolean("marks", mcp.Description("Highlight elements with transpile diagnostics (default: true)")),
	)
	return mcp.NewTool("flowscript.diagram", opts...)
}

func lintTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Run lint rules against every element of a flow"),
	}, withSource()...)
	return mcp.NewTool("flowscript.lint", opts...)
}

func historyTool() mcp.Tool {
	return mcp.NewTool("flowscript.history",
		mcp.WithDescription("List stored transpile runs, newest first"),
		mcp.WithString("flow_label", mcp.Description("Only runs of this flow")),
		mcp.WithString("source_path", mcp.Description("Only runs of this source file")),
		mcp.WithString("run_id", mcp.Description("Return this single run, including its output")),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default: 20)")),
		mcp.WithBoolean("include_output", mcp.Description("Include generated pseudocode in list results (default: false)")),
	)
}
