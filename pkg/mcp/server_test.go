package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowscript/internal/lint"
)

func TestNewFlowscriptServer(t *testing.T) {
	s := newTestServer(t, nil)
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.transpiler)
	assert.NotNil(t, s.validator)
	assert.NotNil(t, s.linter(), "built-in rules without a loader")
}

func TestToolRegistration(t *testing.T) {
	s := newTestServer(t, nil)

	tools := s.mcpServer.ListTools()
	require.Len(t, tools, 5)

	for _, name := range []string{
		"flowscript.transpile",
		"flowscript.validate",
		"flowscript.diagram",
		"flowscript.lint",
		"flowscript.history",
	} {
		assert.NotNil(t, s.mcpServer.GetTool(name), "tool %s should be registered", name)
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		toolName    string
		description string
	}{
		{"flowscript.transpile", "Transpile a flow into Apex-like pseudocode"},
		{"flowscript.validate", "Check a flow for structural errors and warnings"},
		{"flowscript.lint", "Run lint rules against every element of a flow"},
		{"flowscript.history", "List stored transpile runs, newest first"},
	}

	s := newTestServer(t, nil)
	for _, tc := range tests {
		t.Run(tc.toolName, func(t *testing.T) {
			tool := s.mcpServer.GetTool(tc.toolName)
			require.NotNil(t, tool)
			assert.Equal(t, tc.description, tool.Tool.Description)
			if tc.toolName != "flowscript.history" {
				assert.Contains(t, tool.Tool.InputSchema.Required, "content")
			}
		})
	}
}

func TestServerFollowsRuleReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - {id: one, when: \"true\"}\n"), 0o644))

	loader, err := lint.NewRuleLoader(path, discardLogger())
	require.NoError(t, err)

	s, err := NewFlowscriptServer(FlowscriptServerDeps{Rules: loader, Logger: discardLogger()})
	require.NoError(t, err)
	assert.Len(t, s.linter().Rules(), 1)

	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - {id: one, when: \"true\"}\n  - {id: two, when: \"false\"}\n"), 0o644))
	_, err = loader.Reload()
	require.NoError(t, err)
	assert.Len(t, s.linter().Rules(), 2)
}
