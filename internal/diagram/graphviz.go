package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

var dotShapes = map[NodeKind]cgraph.Shape{
	NodeKindStart:    cgraph.CircleShape,
	NodeKindDecision: cgraph.DiamondShape,
	NodeKindLoop:     cgraph.HexagonShape,
	NodeKindRecord:   cgraph.CylinderShape,
	NodeKindScreen:   cgraph.ParallelogramShape,
	NodeKindSubflow:  cgraph.Box3DShape,
}

// markFill is the node fill color per mark severity. Marked nodes use white
// text.
var markFill = map[string]string{
	MarkError:   "#8b1a1a",
	MarkWarning: "#b7791a",
}

// RenderImage lays the model out top to bottom with dot and returns PNG
// bytes.
func RenderImage(ctx context.Context, model *DiagramModel) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.DOT)

	g, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: graph: %w", err)
	}
	defer g.Close()
	g.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		g.SetLabel(model.Title)
	}

	nodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, n := range model.Nodes {
		if nodes[n.ID], err = dotNode(g, n); err != nil {
			return nil, err
		}
	}
	for _, e := range model.Edges {
		from, to := nodes[e.From], nodes[e.To]
		if from == nil || to == nil {
			continue
		}
		edge, err := g.CreateEdgeByName("", from, to)
		if err != nil {
			return nil, fmt.Errorf("diagram: edge %s -> %s: %w", e.From, e.To, err)
		}
		if e.Label != "" {
			edge.SetLabel(e.Label)
		}
		if e.GoTo {
			edge.SetStyle(cgraph.DashedEdgeStyle)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render: %w", err)
	}
	return buf.Bytes(), nil
}

func dotNode(g *cgraph.Graph, n *Node) (*cgraph.Node, error) {
	node, err := g.CreateNodeByName(n.ID)
	if err != nil {
		return nil, fmt.Errorf("diagram: node %s: %w", n.ID, err)
	}
	node.SetLabel(firstLine(n.Label))

	shape, ok := dotShapes[n.Kind]
	if !ok {
		shape = cgraph.BoxShape
	}
	node.SetShape(shape)
	if n.Kind == NodeKindStart {
		node.SetWidth(0.5)
		node.SetHeight(0.5)
	}

	if n.Mark != nil {
		if fill, ok := markFill[n.Mark.Severity]; ok {
			node.SetStyle(cgraph.FilledNodeStyle)
			node.SetFillColor(fill)
			node.SetFontColor("white")
		}
	}
	return node, nil
}
