package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowscript/pkg/schema"
)

// --- Test fixtures ---

func conn(target string) *schema.Connector {
	return &schema.Connector{Target: target, Kind: schema.ConnectorNormal}
}

// vipFlow: start -> Is_VIP (VIP -> GetAccount, default -> SetFlag),
// GetAccount -> SetFlag, GetAccount fault -> LogError.
func vipFlow() *schema.Flow {
	return &schema.Flow{
		Label: "VIP Router",
		Start: &schema.Element{Kind: schema.KindStart, Name: "start", Connector: conn("Is_VIP")},
		Elements: []*schema.Element{
			{
				Kind:     schema.KindDecision,
				Name:     "Is_VIP",
				Label:    "Is VIP?",
				Decision: &schema.DecisionSpec{Rules: []schema.Rule{{Name: "VIP", Label: "Yes", Connector: conn("GetAccount")}}},
				Default:  &schema.Connector{Target: "SetFlag", Kind: schema.ConnectorDefault},
			},
			{
				Kind:      schema.KindRecordLookup,
				Name:      "GetAccount",
				Connector: conn("SetFlag"),
				Fault:     &schema.Connector{Target: "LogError", Kind: schema.ConnectorFault},
			},
			{Kind: schema.KindAssignment, Name: "SetFlag"},
			{Kind: schema.KindActionCall, Name: "LogError"},
			{Kind: schema.KindFormula, Name: "Discount"},
		},
	}
}

// loopFlow: start -> L (next -> Body, done -> Done), Body -> L.
func loopFlow() *schema.Flow {
	return &schema.Flow{
		Label: "Loop",
		Start: &schema.Element{Kind: schema.KindStart, Name: "start", Connector: conn("L")},
		Elements: []*schema.Element{
			{Kind: schema.KindLoop, Name: "L", Loop: &schema.LoopSpec{CollectionReference: "Items", NextValue: conn("Body"), NoMoreValues: conn("Done")}},
			{Kind: schema.KindAssignment, Name: "Body", Connector: &schema.Connector{Target: "L", IsGoTo: true}},
			{Kind: schema.KindSubflow, Name: "Done"},
			{Kind: schema.KindScreen, Name: "Unused"},
		},
	}
}

func edgeMap(model *DiagramModel) map[string]string {
	m := make(map[string]string, len(model.Edges))
	for _, e := range model.Edges {
		m[e.From+"->"+e.To] = e.Label
	}
	return m
}

// --- Build ---

func TestBuildNilFlow(t *testing.T) {
	_, err := Build(nil, nil)
	assert.Error(t, err)

	_, err = Build(&schema.Flow{}, nil)
	assert.Error(t, err)
}

func TestBuildNodes(t *testing.T) {
	model, err := Build(vipFlow(), nil)
	require.NoError(t, err)

	assert.Equal(t, "VIP Router", model.Title)
	require.Len(t, model.Nodes, 5, "formulas get no node")

	assert.Equal(t, "__start__", model.Nodes[0].ID)
	assert.Equal(t, NodeKindStart, model.Nodes[0].Kind)

	assert.Equal(t, "decisions.Is_VIP", model.Nodes[1].ID)
	assert.Equal(t, "Is VIP?", model.Nodes[1].Label)
	assert.Equal(t, NodeKindDecision, model.Nodes[1].Kind)
	assert.Equal(t, NodeKindRecord, model.Nodes[2].Kind)
	assert.Equal(t, NodeKindAssignment, model.Nodes[3].Kind)
	assert.Equal(t, NodeKindAction, model.Nodes[4].Kind)
}

func TestBuildEdges(t *testing.T) {
	model, err := Build(vipFlow(), nil)
	require.NoError(t, err)

	edges := edgeMap(model)
	assert.Equal(t, "", edges["__start__->decisions.Is_VIP"])
	assert.Equal(t, "Yes", edges["decisions.Is_VIP->recordLookups.GetAccount"])
	assert.Equal(t, "default", edges["decisions.Is_VIP->assignments.SetFlag"])
	assert.Equal(t, "", edges["recordLookups.GetAccount->assignments.SetFlag"])
	assert.Equal(t, "fault", edges["recordLookups.GetAccount->actionCalls.LogError"])
	assert.Len(t, model.Edges, 5)
}

func TestBuildLoopEdgesAndLevels(t *testing.T) {
	model, err := Build(loopFlow(), nil)
	require.NoError(t, err)

	edges := edgeMap(model)
	assert.Equal(t, "next", edges["loops.L->assignments.Body"])
	assert.Equal(t, "done", edges["loops.L->subflows.Done"])
	assert.Equal(t, "goto", edges["assignments.Body->loops.L"])

	assert.Equal(t, [][]string{
		{"__start__"},
		{"loops.L"},
		{"assignments.Body", "subflows.Done"},
		{"screens.Unused"},
	}, model.Levels)
}

func TestBuildMarks(t *testing.T) {
	marks := map[string]Mark{
		"GetAccount": {Severity: MarkError, Message: "missing required object"},
		"Ghost":      {Severity: MarkWarning},
	}
	model, err := Build(vipFlow(), marks)
	require.NoError(t, err)

	require.NotNil(t, model.Nodes[2].Mark)
	assert.Equal(t, MarkError, model.Nodes[2].Mark.Severity)
	for _, n := range model.Nodes {
		if n.Name != "GetAccount" {
			assert.Nil(t, n.Mark, n.ID)
		}
	}
}

func TestEdgeLabel(t *testing.T) {
	tests := []struct {
		edge schema.Edge
		want string
	}{
		{schema.Edge{Label: "R1", Connector: &schema.Connector{Kind: schema.ConnectorNormal}}, "R1"},
		{schema.Edge{Label: "default", Connector: &schema.Connector{Kind: schema.ConnectorDefault}}, "default"},
		{schema.Edge{Label: "fault", Connector: &schema.Connector{Kind: schema.ConnectorFault, IsGoTo: true}}, "fault (goto)"},
		{schema.Edge{Connector: &schema.Connector{IsGoTo: true}}, "goto"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, edgeLabel(tt.edge))
	}
}
