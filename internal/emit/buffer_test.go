package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRenderMain(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.Comment("Flow: Demo"))
	require.NoError(t, b.Blank())
	require.NoError(t, b.Write("if (x) {"))
	s := b.Indent()
	require.NoError(t, b.Writef("y = %d;", 1))
	s.Close()
	require.NoError(t, b.Write("}"))

	assert.Equal(t, "// Flow: Demo\n\nif (x) {\n    y = 1;\n}\n", b.Render())
}

func TestScopeCloseIsIdempotent(t *testing.T) {
	b := NewBuffer()
	outer := b.Indent()
	inner := b.Indent()
	assert.Equal(t, 2, b.Depth())

	inner.Close()
	inner.Close()
	assert.Equal(t, 1, b.Depth())

	outer.Close()
	assert.Equal(t, 0, b.Depth())
}

func TestBlankLinesCarryNoIndentation(t *testing.T) {
	b := NewBuffer()
	s := b.Indent()
	b.Write("a;")
	b.Blank()
	b.Write("b;")
	s.Close()

	assert.Equal(t, "    a;\n\n    b;\n", b.Render())
}

func TestProcedureRendering(t *testing.T) {
	b := NewBuffer()
	b.Write("processFlow();")
	b.OpenProcedure("processFlow", "")
	b.Write("if (ok) {")
	s := b.Indent()
	b.Write("GetAccount();")
	s.Close()
	b.Write("}")

	b.OpenProcedure("GetAccount", "Account")
	b.Write("return acct;")
	require.NoError(t, b.CloseProcedure())
	require.NoError(t, b.CloseProcedure())

	want := strings.Join([]string{
		"processFlow();",
		"private void processFlow() {",
		"    if (ok) {",
		"        GetAccount();",
		"    }",
		"}",
		"",
		"private Account GetAccount() {",
		"    return acct;",
		"}",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, b.Render())
	assert.Equal(t, 2, b.ProcedureCount())
}

func TestWriteOutsideProcedureRejected(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.Write("main();"))
	b.OpenProcedure("main", "")
	require.NoError(t, b.CloseProcedure())

	err := b.Write("stray;")
	assert.ErrorIs(t, err, ErrOutsideProcedure)
	assert.ErrorIs(t, b.Err(), ErrOutsideProcedure)
	assert.Equal(t, "main();\nprivate void main() {\n}\n\n", b.Render())
}

func TestCloseWithoutOpen(t *testing.T) {
	b := NewBuffer()
	assert.ErrorIs(t, b.CloseProcedure(), ErrNoOpenProcedure)
}

func TestProcedureRestoresCallerDepth(t *testing.T) {
	b := NewBuffer()
	b.OpenProcedure("outer", "")
	s := b.Indent()
	s2 := b.Indent()
	b.OpenProcedure("inner", "")
	assert.Equal(t, 0, b.Depth())
	b.Write("x;")
	require.NoError(t, b.CloseProcedure())
	assert.Equal(t, 2, b.Depth())
	b.Write("inner();")
	s2.Close()
	s.Close()
	require.NoError(t, b.CloseProcedure())

	lines, ok := b.procedureLines("outer")
	require.True(t, ok)
	assert.Equal(t, []Line{{Text: "inner();", Depth: 2}}, lines)
}

func TestReopenAppends(t *testing.T) {
	b := NewBuffer()
	b.OpenProcedure("p", "")
	b.Write("a;")
	b.CloseProcedure()
	b.OpenProcedure("p", "String")
	b.Write("b;")
	b.CloseProcedure()

	assert.Equal(t, 1, b.ProcedureCount())
	assert.Equal(t, "private String p() {\n    a;\n    b;\n}\n\n", b.Render())
}

func TestCaptureDivertsWrites(t *testing.T) {
	b := NewBuffer()
	b.OpenProcedure("p", "")
	b.Write("if (c) {")
	c := b.Capture()
	s := b.Indent()
	b.Write("captured;")
	s.Close()
	lines := c.Lines()
	assert.Equal(t, []Line{{Text: "captured;", Depth: 1}}, lines)
	assert.Len(t, c.Lines(), 1)

	b.Write("} else {")
	require.NoError(t, b.Append(lines))
	b.Write("}")
	b.CloseProcedure()

	assert.Equal(t, "private void p() {\n    if (c) {\n    } else {\n        captured;\n    }\n}\n\n", b.Render())
}

func TestCaptureKeepsProcedureBodies(t *testing.T) {
	b := NewBuffer()
	b.OpenProcedure("p", "")
	c := b.Capture()
	b.OpenProcedure("promoted", "")
	b.Write("body;")
	b.CloseProcedure()
	b.Write("promoted();")
	lines := c.Lines()
	b.CloseProcedure()

	assert.Equal(t, []Line{{Text: "promoted();", Depth: 0}}, lines)
	body, ok := b.procedureLines("promoted")
	require.True(t, ok)
	assert.Equal(t, []Line{{Text: "body;", Depth: 0}}, body)
	p, _ := b.procedureLines("p")
	assert.Empty(t, p)
}

func TestRenderIsMemoizedUntilWrite(t *testing.T) {
	b := NewBuffer()
	b.Write("a;")
	first := b.Render()
	assert.Equal(t, first, b.Render())

	b.Write("b;")
	assert.Equal(t, "a;\nb;\n", b.Render())
}

func TestIndentWidthOption(t *testing.T) {
	b := NewBuffer(WithIndentWidth(2))
	s := b.Indent()
	b.Write("x;")
	s.Close()
	assert.Equal(t, "  x;\n", b.Render())
}
