package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowscript/internal/store"
	"github.com/rendis/flowscript/internal/transpile"
)

const vipFlow = `<?xml version="1.0" encoding="UTF-8"?>
<Flow xmlns="http://soap.sforce.com/2006/04/metadata">
    <label>VIP Router</label>
    <processType>AutoLaunchedFlow</processType>
    <start>
        <connector><targetReference>Is_VIP</targetReference></connector>
    </start>
    <decisions>
        <name>Is_VIP</name>
        <label>Is VIP</label>
        <defaultConnector><targetReference>SetFlag</targetReference></defaultConnector>
        <rules>
            <name>VIP</name>
            <conditionLogic>and</conditionLogic>
            <conditions>
                <leftValueReference>Is_VIP_Customer</leftValueReference>
                <operator>EqualTo</operator>
                <rightValue><booleanValue>true</booleanValue></rightValue>
            </conditions>
            <connector><targetReference>GetX</targetReference></connector>
            <label>VIP</label>
        </rules>
    </decisions>
    <recordLookups>
        <name>GetX</name>
        <connector><targetReference>SetFlag</targetReference></connector>
    </recordLookups>
    <assignments>
        <name>SetFlag</name>
        <assignmentItems>
            <assignToReference>Flag</assignToReference>
            <operator>Assign</operator>
            <value><booleanValue>true</booleanValue></value>
        </assignmentItems>
    </assignments>
</Flow>`

// --- Helpers ---

// setupCLI isolates HOME and the database, and writes vipFlow to a temp
// file whose path it returns.
func setupCLI(t *testing.T) string {
	t.Helper()
	home := isolateHome(t)
	t.Setenv("FLOWSCRIPT_DB_PATH", "file:"+filepath.Join(home, "runs.db"))

	path := filepath.Join(t.TempDir(), "VIP_Router.flow-meta.xml")
	require.NoError(t, os.WriteFile(path, []byte(vipFlow), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// --- transpile ---

func TestTranspileCmdText(t *testing.T) {
	path := setupCLI(t)

	out, errOut, err := runCLI(t, "transpile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "if (Is_VIP_Customer == true) {")
	assert.Contains(t, out, "// ERROR: recordLookups GetX: missing required object")
	assert.Contains(t, errOut, "GetX")
}

func TestTranspileCmdJSONToFile(t *testing.T) {
	path := setupCLI(t)
	target := filepath.Join(t.TempDir(), "out", "vip.json")

	out, _, err := runCLI(t, "transpile", path, "--format", "json", "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var res transpile.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Contains(t, res.Code, "Is_VIP_Customer")
	assert.NotEmpty(t, res.Diagnostics)
}

func TestTranspileCmdBadFormat(t *testing.T) {
	path := setupCLI(t)
	_, _, err := runCLI(t, "transpile", path, "--format", "yaml")
	assert.ErrorContains(t, err, "--format")
}

func TestTranspileCmdMissingStart(t *testing.T) {
	setupCLI(t)
	path := filepath.Join(t.TempDir(), "Empty.flow-meta.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<Flow><label>Empty</label></Flow>`), 0o644))

	_, _, err := runCLI(t, "transpile", path)
	assert.Error(t, err)
}

// --- history ---

func TestTranspileSaveAndHistory(t *testing.T) {
	path := setupCLI(t)

	_, _, err := runCLI(t, "transpile", path, "--save")
	require.NoError(t, err)

	out, _, err := runCLI(t, "history", "--json")
	require.NoError(t, err)
	var runs []store.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "VIP Router", runs[0].FlowLabel)
	assert.Equal(t, store.TriggerCLI, runs[0].Trigger)
	assert.Empty(t, runs[0].Output, "list omits pseudocode")

	out, _, err = runCLI(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "VIP Router")
	assert.Contains(t, out, runs[0].ID)

	out, _, err = runCLI(t, "history", "show", runs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "if (Is_VIP_Customer == true) {")

	_, _, err = runCLI(t, "history", "delete", runs[0].ID)
	require.NoError(t, err)
	_, _, err = runCLI(t, "history", "show", runs[0].ID)
	assert.Error(t, err)
}

func TestHistoryFilterByFlow(t *testing.T) {
	path := setupCLI(t)
	_, _, err := runCLI(t, "transpile", path, "--save")
	require.NoError(t, err)

	out, _, err := runCLI(t, "history", "--json", "--flow", "Other")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

// --- validate ---

func TestValidateCmd(t *testing.T) {
	path := setupCLI(t)

	out, _, err := runCLI(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	bad := filepath.Join(t.TempDir(), "Empty.flow-meta.xml")
	require.NoError(t, os.WriteFile(bad, []byte(`<Flow><label>Empty</label></Flow>`), 0o644))
	out, _, err = runCLI(t, "validate", bad)
	assert.Error(t, err)
	assert.Contains(t, out, "MISSING_START")
}

// --- diagram ---

func TestDiagramCmd(t *testing.T) {
	path := setupCLI(t)

	out, _, err := runCLI(t, "diagram", path)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.NotContains(t, out, "class recordLookups_GetX error")

	out, _, err = runCLI(t, "diagram", path, "--marks")
	require.NoError(t, err)
	assert.Contains(t, out, "class recordLookups_GetX error")

	out, _, err = runCLI(t, "diagram", path, "--format", "ascii")
	require.NoError(t, err)
	assert.Contains(t, out, "=== VIP Router ===")

	_, _, err = runCLI(t, "diagram", path, "--format", "svg")
	assert.Error(t, err)
}

// --- lint ---

func TestLintCmdBuiltin(t *testing.T) {
	path := setupCLI(t)

	out, _, err := runCLI(t, "lint", path)
	require.NoError(t, err, "built-in rules only report warnings and info")
	assert.Contains(t, out, "missing-description")
}

func TestLintCmdErrorRule(t *testing.T) {
	path := setupCLI(t)
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`rules:
  - id: no-lookups
    severity: error
    kinds: [recordLookups]
    when: "true"
    message: "lookup ${{element.name}} is not allowed"
`), 0o644))

	out, _, err := runCLI(t, "lint", path, "--rules", rules, "--json")
	assert.ErrorContains(t, err, "1 lint errors")

	var findings []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &findings))
	require.Len(t, findings, 1)
	assert.Equal(t, "lookup GetX is not allowed", findings[0]["message"])
}

// --- query ---

func TestQueryCmd(t *testing.T) {
	path := setupCLI(t)

	out, _, err := runCLI(t, "query", ".label", path)
	require.NoError(t, err)
	assert.Equal(t, "\"VIP Router\"\n", out)

	out, _, err = runCLI(t, "query", `[.elements[] | .name]`, path)
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.ElementsMatch(t, []string{"Is_VIP", "GetX", "SetFlag"}, names)

	_, _, err = runCLI(t, "query", ".[", path)
	assert.Error(t, err)
}

func TestQueryCmdArg(t *testing.T) {
	path := setupCLI(t)

	out, _, err := runCLI(t, "query", "--arg", "el=GetX", `.elements[] | select(.name == $el) | .kind`, path)
	require.NoError(t, err)
	assert.Equal(t, "\"recordLookups\"\n", out)

	_, _, err = runCLI(t, "query", "--arg", "noequals", ".label", path)
	assert.ErrorContains(t, err, "--arg")
}

// --- version ---

func TestVersionCmd(t *testing.T) {
	isolateHome(t)
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

// --- helpers under test ---

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("format", "json", "text", "json"))
	assert.ErrorContains(t, checkFormat("format", "xml", "text", "json"), `"xml"`)
}
