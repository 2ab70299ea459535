package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const boxGap = "  "

// RenderASCII draws the model level by level as rows of boxes, with arrows
// under every box that has a successor row, then lists the connectors.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder
	if model.Title != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", model.Title)
	}

	byID := make(map[string]*Node, len(model.Nodes))
	for _, n := range model.Nodes {
		byID[n.ID] = n
	}

	for i, level := range model.Levels {
		var row []asciiBox
		for _, id := range level {
			if n := byID[id]; n != nil {
				row = append(row, makeBox(n))
			}
		}
		writeRow(&b, row)
		if i < len(model.Levels)-1 && len(row) > 0 {
			writeArrows(&b, row)
		}
	}

	if len(model.Edges) == 0 {
		return b.String()
	}
	b.WriteString("\n--- connectors ---\n")
	for _, e := range model.Edges {
		from, to := byID[e.From], byID[e.To]
		if from == nil || to == nil {
			continue
		}
		fmt.Fprintf(&b, "  %s ─→ %s", firstLine(from.Label), firstLine(to.Label))
		if e.Label != "" {
			fmt.Fprintf(&b, " [%s]", e.Label)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type asciiBox struct {
	lines []string
	width int
}

// makeBox frames the node's label, its kind and its mark tag. Widths count
// runes so multibyte labels stay aligned.
func makeBox(n *Node) asciiBox {
	content := []string{firstLine(n.Label)}
	if n.Kind != NodeKindStart {
		content = append(content, "<"+string(n.Kind)+">")
	}
	if n.Mark != nil {
		switch n.Mark.Severity {
		case MarkError:
			content = append(content, "[ERR]")
		case MarkWarning:
			content = append(content, "[WARN]")
		}
	}

	inner := 0
	for _, c := range content {
		inner = max(inner, utf8.RuneCountInString(c))
	}
	rule := strings.Repeat("─", inner+2)

	box := asciiBox{width: inner + 4}
	box.lines = append(box.lines, "┌"+rule+"┐")
	for _, c := range content {
		box.lines = append(box.lines, "│ "+c+strings.Repeat(" ", inner-utf8.RuneCountInString(c))+" │")
	}
	box.lines = append(box.lines, "└"+rule+"┘")
	return box
}

func writeRow(b *strings.Builder, row []asciiBox) {
	height := 0
	for _, box := range row {
		height = max(height, len(box.lines))
	}
	for line := range height {
		cells := make([]string, len(row))
		for i, box := range row {
			if line < len(box.lines) {
				cells[i] = box.lines[line]
			} else {
				cells[i] = strings.Repeat(" ", box.width)
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, boxGap), " "))
		b.WriteByte('\n')
	}
}

// writeArrows centers a down arrow under each box of row.
func writeArrows(b *strings.Builder, row []asciiBox) {
	for _, glyph := range []string{"│", "▼"} {
		var line strings.Builder
		for i, box := range row {
			if i > 0 {
				line.WriteString(boxGap)
			}
			left := (box.width - 1) / 2
			line.WriteString(strings.Repeat(" ", left) + glyph + strings.Repeat(" ", box.width-left-1))
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteByte('\n')
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
