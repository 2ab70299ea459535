package diagram

import (
	"fmt"

	"github.com/rendis/flowscript/pkg/schema"
)

// Build constructs a DiagramModel from a flow and optional per-element marks
// keyed by element name. Nodes follow declaration order with the start node
// first; formulas and text templates are resources and get no node. Levels
// are BFS depths from the start node, with unreachable nodes in a trailing
// level.
func Build(flow *schema.Flow, marks map[string]Mark) (*DiagramModel, error) {
	if flow == nil {
		return nil, fmt.Errorf("diagram: flow is nil")
	}
	if flow.Start == nil {
		return nil, schema.NewError(schema.ErrCodeMissingStart, "diagram: flow has no start element")
	}

	elements := schema.NewElementMap(flow)
	nodeIndex := make(map[*schema.Element]*Node)
	var (
		nodes   []*Node
		members []*schema.Element
	)

	add := func(el *schema.Element) {
		if _, ok := nodeIndex[el]; ok {
			return
		}
		node := elementToNode(el)
		if m, ok := marks[el.Name]; ok && el.Name != "" {
			mark := m
			node.Mark = &mark
		}
		nodeIndex[el] = node
		nodes = append(nodes, node)
		members = append(members, el)
	}

	add(flow.Start)
	for _, el := range flow.Elements {
		if el.Kind == schema.KindFormula || el.Kind == schema.KindTextTemplate {
			continue
		}
		add(el)
	}

	var edges []Edge
	adjacency := make(map[string][]string)
	for _, el := range members {
		from := nodeIndex[el]
		for _, e := range el.Edges() {
			target, ok := elements.Find(e.Connector.Target)
			if !ok {
				continue
			}
			to, ok := nodeIndex[target]
			if !ok {
				continue
			}
			edges = append(edges, Edge{
				From:  from.ID,
				To:    to.ID,
				Label: edgeLabel(e),
				GoTo:  e.Connector.IsGoTo,
			})
			adjacency[from.ID] = append(adjacency[from.ID], to.ID)
		}
	}

	return &DiagramModel{
		Title:  titleFromFlow(flow),
		Nodes:  nodes,
		Edges:  edges,
		Levels: buildLevels(nodes, adjacency),
	}, nil
}

// elementToNode maps a flow element to a diagram Node.
func elementToNode(el *schema.Element) *Node {
	label := el.Label
	if label == "" {
		label = el.DisplayName()
	}
	return &Node{
		ID:    nodeID(el),
		Name:  el.Name,
		Label: label,
		Kind:  kindToNodeKind(el.Kind),
	}
}

// nodeID is unique across kinds since names only need to be unique within
// one.
func nodeID(el *schema.Element) string {
	if el.Kind == schema.KindStart {
		return "__start__"
	}
	name := el.Name
	if name == "" {
		name = el.Key()
	}
	return string(el.Kind) + "." + name
}

// kindToNodeKind converts an element kind to a NodeKind.
func kindToNodeKind(k schema.Kind) NodeKind {
	switch k {
	case schema.KindStart:
		return NodeKindStart
	case schema.KindDecision:
		return NodeKindDecision
	case schema.KindLoop:
		return NodeKindLoop
	case schema.KindRecordLookup, schema.KindRecordCreate, schema.KindRecordUpdate, schema.KindRecordDelete:
		return NodeKindRecord
	case schema.KindAssignment:
		return NodeKindAssignment
	case schema.KindScreen:
		return NodeKindScreen
	case schema.KindSubflow:
		return NodeKindSubflow
	default:
		return NodeKindAction
	}
}

// edgeLabel names an edge by its role: the rule name for decision outcomes,
// next/done for loops, default/fault otherwise. Goto connectors say so.
func edgeLabel(e schema.Edge) string {
	label := e.Label
	switch e.Connector.Kind {
	case schema.ConnectorDefault:
		label = "default"
	case schema.ConnectorFault:
		label = "fault"
	}
	if e.Connector.IsGoTo {
		if label == "" {
			return "goto"
		}
		return label + " (goto)"
	}
	return label
}

// buildLevels groups node IDs by BFS depth from the start node.
func buildLevels(nodes []*Node, adjacency map[string][]string) [][]string {
	if len(nodes) == 0 {
		return nil
	}
	depth := map[string]int{nodes[0].ID: 0}
	queue := []string{nodes[0].ID}
	maxDepth := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[id] {
			if _, seen := depth[next]; seen {
				continue
			}
			depth[next] = depth[id] + 1
			maxDepth = max(maxDepth, depth[next])
			queue = append(queue, next)
		}
	}

	levels := make([][]string, maxDepth+1)
	var orphans []string
	for _, n := range nodes {
		d, ok := depth[n.ID]
		if !ok {
			orphans = append(orphans, n.ID)
			continue
		}
		levels[d] = append(levels[d], n.ID)
	}
	if len(orphans) > 0 {
		levels = append(levels, orphans)
	}
	return levels
}

// titleFromFlow generates a diagram title from flow metadata.
func titleFromFlow(flow *schema.Flow) string {
	if flow.Label != "" {
		return flow.Label
	}
	return "Flow"
}
