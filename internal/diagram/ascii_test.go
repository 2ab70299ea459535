package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderASCIIVIP(t *testing.T) {
	model, err := Build(vipFlow(), nil)
	require.NoError(t, err)

	output := RenderASCII(model)
	assert.NotEmpty(t, output)

	assert.Contains(t, output, "=== VIP Router ===")

	// Box-drawing characters.
	assert.Contains(t, output, "┌")
	assert.Contains(t, output, "┐")
	assert.Contains(t, output, "└")
	assert.Contains(t, output, "┘")
	assert.Contains(t, output, "│")
	assert.Contains(t, output, "▼")

	// Node labels and kinds.
	assert.Contains(t, output, "Is VIP?")
	assert.Contains(t, output, "<decision>")
	assert.Contains(t, output, "<record>")

	// Connector list.
	assert.Contains(t, output, "--- connectors ---")
	assert.Contains(t, output, "Is VIP? ─→ GetAccount [Yes]")
	assert.Contains(t, output, "GetAccount ─→ LogError [fault]")
}

func TestRenderASCIIMarks(t *testing.T) {
	model := &DiagramModel{
		Title: "Test",
		Nodes: []*Node{
			{ID: "s", Label: "start", Kind: NodeKindStart},
			{ID: "a", Label: "step-a", Kind: NodeKindAction, Mark: &Mark{Severity: MarkError}},
			{ID: "b", Label: "step-b", Kind: NodeKindAction, Mark: &Mark{Severity: MarkWarning}},
		},
		Levels: [][]string{{"s"}, {"a", "b"}},
	}

	output := RenderASCII(model)
	assert.Contains(t, output, "[ERR]")
	assert.Contains(t, output, "[WARN]")
	assert.NotContains(t, output, "connectors")
}

func TestMakeBoxPadsMultibyteLabels(t *testing.T) {
	box := makeBox(&Node{Label: "Größe", Kind: NodeKindStart})
	require.Len(t, box.lines, 3)
	assert.Equal(t, "│ Größe │", box.lines[1])
	assert.Equal(t, 9, box.width)
}

func TestRenderASCIIArrowsUnderEachBox(t *testing.T) {
	model := &DiagramModel{
		Nodes: []*Node{
			{ID: "s", Label: "s", Kind: NodeKindStart},
			{ID: "a", Label: "a", Kind: NodeKindAction},
			{ID: "b", Label: "b", Kind: NodeKindAction},
			{ID: "c", Label: "c", Kind: NodeKindAction},
		},
		Levels: [][]string{{"s"}, {"a", "b"}, {"c"}},
	}

	lines := strings.Split(RenderASCII(model), "\n")
	var arrows []string
	for _, l := range lines {
		if strings.Contains(l, "▼") {
			arrows = append(arrows, l)
		}
	}
	require.Len(t, arrows, 2)
	assert.Equal(t, 1, strings.Count(arrows[0], "▼"))
	assert.Equal(t, 2, strings.Count(arrows[1], "▼"))
}
