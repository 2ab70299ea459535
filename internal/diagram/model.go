package diagram

// NodeKind classifies a diagram node by its flow element kind.
type NodeKind string

const (
	NodeKindStart      NodeKind = "start"
	NodeKindDecision   NodeKind = "decision"
	NodeKindLoop       NodeKind = "loop"
	NodeKindAction     NodeKind = "action"
	NodeKindRecord     NodeKind = "record"
	NodeKindAssignment NodeKind = "assignment"
	NodeKindScreen     NodeKind = "screen"
	NodeKindSubflow    NodeKind = "subflow"
)

// Mark severities.
const (
	MarkError   = "error"
	MarkWarning = "warning"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node represents a single flow element in the diagram.
type Node struct {
	ID    string
	Name  string
	Label string
	Kind  NodeKind
	Mark  *Mark
}

// Mark flags a node that produced a diagnostic while transpiling.
type Mark struct {
	Severity string
	Message  string
}

// Edge represents a connector between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
	GoTo  bool
}
