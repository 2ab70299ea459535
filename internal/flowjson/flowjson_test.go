package flowjson

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowscript/pkg/schema"
)

const vipFlowJSON = `{
  "label": "VIP Router",
  "process_type": "AutoLaunchedFlow",
  "status": "Active",
  "variables": [
    {"name": "Accounts", "data_type": "SObject", "object_type": "Account", "is_collection": true}
  ],
  "start": {
    "kind": "start",
    "name": "start",
    "start": {"object": "Account"},
    "connector": {"target": "Is_VIP"}
  },
  "elements": [
    {
      "kind": "decisions",
      "name": "Is_VIP",
      "decision": {
        "rules": [{
          "name": "VIP",
          "conditions": [{
            "left_value_reference": "$Record.Is_VIP__c",
            "operator": "EqualTo",
            "right_value": {"boolean_value": true}
          }],
          "connector": {"target": "SetFlag"}
        }]
      },
      "default_connector": {"target": "SetFlag"}
    },
    {
      "kind": "assignments",
      "name": "SetFlag",
      "assignment": {
        "items": [{"assign_to_reference": "$Record.VIP_Flag__c", "operator": "Assign", "value": {"boolean_value": true}}]
      },
      "fault_connector": {"target": "SetFlag", "is_goto": true}
    }
  ]
}`

func TestParseBytes_Valid(t *testing.T) {
	flow, err := ParseBytes([]byte(vipFlowJSON))
	require.NoError(t, err)

	assert.Equal(t, "VIP Router", flow.Label)
	require.NotNil(t, flow.Start)
	assert.Equal(t, schema.KindStart, flow.Start.Kind)
	assert.Equal(t, "Account", flow.Start.Start.Object)
	require.Len(t, flow.Elements, 2)

	d := flow.Elements[0]
	assert.Equal(t, schema.KindDecision, d.Kind)
	require.Len(t, d.Decision.Rules, 1)
	assert.True(t, *d.Decision.Rules[0].Conditions[0].RightValue.BooleanValue)

	// Implicit connector kinds are filled in.
	assert.Equal(t, schema.ConnectorNormal, flow.Start.Connector.Kind)
	assert.Equal(t, schema.ConnectorNormal, d.Decision.Rules[0].Connector.Kind)
	assert.Equal(t, schema.ConnectorDefault, d.Default.Kind)
	assert.Equal(t, schema.ConnectorFault, flow.Elements[1].Fault.Kind)
	assert.True(t, flow.Elements[1].Fault.IsGoTo)

	assert.Equal(t, "List<Account>", flow.Variables[0].TypeName())
}

func TestParseBytes_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing start", `{"label": "x"}`},
		{"unknown kind", `{"label": "x", "start": {"kind": "start"}, "elements": [{"kind": "waits", "name": "W"}]}`},
		{"unknown top-level field", `{"label": "x", "start": {"kind": "start"}, "steps": []}`},
		{"connector without target", `{"label": "x", "start": {"kind": "start", "connector": {}}}`},
		{"bad number literal", `{"label": "x", "start": {"kind": "start"}, "constants": [{"name": "n", "value": {"number_value": "1,5"}}]}`},
		{"two literals in one value", `{"label": "x", "start": {"kind": "start"}, "constants": [{"name": "n", "value": {"string_value": "a", "boolean_value": true}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.doc))
			require.Error(t, err)
			var te *schema.TranspileError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, schema.ErrCodeValidation, te.Code)
			require.NotNil(t, te.Details)
			assert.NotEmpty(t, te.Details["violations"])
		})
	}
}

func TestParseBytes_InvalidJSON(t *testing.T) {
	_, err := ParseBytes([]byte(`{"label": `))
	require.Error(t, err)
	var te *schema.TranspileError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, schema.ErrCodeParse, te.Code)
}

func TestParse_Reader(t *testing.T) {
	flow, err := Parse(strings.NewReader(vipFlowJSON))
	require.NoError(t, err)
	assert.Equal(t, "Active", flow.Status)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vip.json")
	require.NoError(t, os.WriteFile(path, []byte(vipFlowJSON), 0o644))

	flow, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "VIP Router", flow.Label)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestMarshalRoundTripsThroughSchema(t *testing.T) {
	flow, err := ParseBytes([]byte(vipFlowJSON))
	require.NoError(t, err)

	data, err := Marshal(flow)
	require.NoError(t, err)
	assert.NoError(t, Validate(data))

	again, err := ParseBytes(data)
	require.NoError(t, err)
	assert.Equal(t, flow, again)
}

func TestToMap(t *testing.T) {
	flow, err := ParseBytes([]byte(vipFlowJSON))
	require.NoError(t, err)

	m, err := ToMap(flow)
	require.NoError(t, err)
	assert.Equal(t, "VIP Router", m["label"])
	elements, ok := m["elements"].([]any)
	require.True(t, ok)
	assert.Len(t, elements, 2)
}

func TestMarshalNil(t *testing.T) {
	_, err := Marshal(nil)
	assert.Error(t, err)
}
