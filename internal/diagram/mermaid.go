package diagram

import (
	"fmt"
	"strconv"
	"strings"
)

// mermaidBrackets are the opening and closing delimiters of each node shape.
// Unlisted kinds render as plain rectangles.
var mermaidBrackets = map[NodeKind][2]string{
	NodeKindStart:    {"((", "))"},
	NodeKindDecision: {"{", "}"},
	NodeKindLoop:     {"[[", "]]"},
	NodeKindRecord:   {"[(", ")]"},
	NodeKindScreen:   {"[/", "/]"},
	NodeKindSubflow:  {"{{", "}}"},
}

var (
	mermaidIDReplacer    = strings.NewReplacer(".", "_", "-", "_", " ", "_", "/", "_")
	mermaidLabelReplacer = strings.NewReplacer(`"`, "#quot;", "|", "#124;")
)

// RenderMermaid renders the model as a top-down Mermaid flowchart. Goto
// connectors are dotted and marked nodes get an error or warning class.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	if model.Title != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", model.Title)
	}

	for _, n := range model.Nodes {
		fmt.Fprintf(&b, "    %s\n", mermaidNodeDef(n))
	}
	for _, e := range model.Edges {
		arrow := "-->"
		if e.GoTo {
			arrow = "-.->"
		}
		if e.Label != "" {
			arrow += "|" + mermaidEscapeLabel(e.Label) + "|"
		}
		fmt.Fprintf(&b, "    %s %s %s\n", mermaidSafeID(e.From), arrow, mermaidSafeID(e.To))
	}

	b.WriteString("\n")
	for _, sev := range []string{MarkError, MarkWarning} {
		fmt.Fprintf(&b, "    classDef %s fill:%s,stroke:#333,color:#fff\n", sev, markFill[sev])
	}
	for _, n := range model.Nodes {
		if n.Mark == nil || markFill[n.Mark.Severity] == "" {
			continue
		}
		fmt.Fprintf(&b, "    class %s %s\n", mermaidSafeID(n.ID), n.Mark.Severity)
	}
	return b.String()
}

func mermaidNodeDef(n *Node) string {
	br, ok := mermaidBrackets[n.Kind]
	if !ok {
		br = [2]string{"[", "]"}
	}
	label := strconv.Quote(mermaidEscapeLabel(firstLine(n.Label)))
	return mermaidSafeID(n.ID) + br[0] + label + br[1]
}

func mermaidSafeID(id string) string { return mermaidIDReplacer.Replace(id) }

func mermaidEscapeLabel(s string) string { return mermaidLabelReplacer.Replace(s) }
