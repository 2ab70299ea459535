package transpile

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowscript/internal/emit"
	"github.com/rendis/flowscript/pkg/schema"
)

// --- fixture builders ---

func newTestTranspiler() *Transpiler {
	return New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func run(t *testing.T, flow *schema.Flow) *Result {
	t.Helper()
	res, err := newTestTranspiler().Transpile(context.Background(), flow)
	require.NoError(t, err)
	assertBalanced(t, res.Code)
	return res
}

func assertBalanced(t *testing.T, code string) {
	t.Helper()
	assert.Equal(t, strings.Count(code, "{"), strings.Count(code, "}"), "unbalanced braces in:\n%s", code)
}

func newFlow(start *schema.Element, elements ...*schema.Element) *schema.Flow {
	return &schema.Flow{
		Label:       "Test Flow",
		ProcessType: "AutoLaunchedFlow",
		Status:      "Active",
		Start:       start,
		Elements:    elements,
	}
}

func to(target string) *schema.Connector {
	if target == "" {
		return nil
	}
	return &schema.Connector{Target: target, Kind: schema.ConnectorNormal}
}

func gotoTo(target string) *schema.Connector {
	return &schema.Connector{Target: target, IsGoTo: true, Kind: schema.ConnectorNormal}
}

func startAt(object, target string) *schema.Element {
	return &schema.Element{
		Kind:      schema.KindStart,
		Name:      "start",
		Start:     &schema.StartSpec{Object: object},
		Connector: to(target),
	}
}

func assign(name, next, target string, value *schema.Value) *schema.Element {
	return &schema.Element{
		Kind:      schema.KindAssignment,
		Name:      name,
		Connector: to(next),
		Assignment: &schema.AssignmentSpec{Items: []schema.AssignmentItem{
			{AssignToReference: target, Operator: "Assign", Value: value},
		}},
	}
}

func action(name, next string) *schema.Element {
	return &schema.Element{Kind: schema.KindActionCall, Name: name, Connector: to(next), Action: &schema.ActionSpec{ActionName: name}}
}

func rule(name, target string, conds ...schema.Condition) schema.Rule {
	return schema.Rule{Name: name, Connector: to(target), Conditions: conds}
}

func cond(left, op string, right *schema.Value) schema.Condition {
	return schema.Condition{LeftValueReference: left, Operator: op, RightValue: right}
}

func decision(name, def string, rules ...schema.Rule) *schema.Element {
	return &schema.Element{
		Kind:     schema.KindDecision,
		Name:     name,
		Default:  &schema.Connector{Target: def, Kind: schema.ConnectorDefault},
		Decision: &schema.DecisionSpec{Rules: rules},
	}
}

func loopOver(name, coll, body, after string) *schema.Element {
	return &schema.Element{
		Kind: schema.KindLoop,
		Name: name,
		Loop: &schema.LoopSpec{CollectionReference: coll, NextValue: to(body), NoMoreValues: to(after)},
	}
}

// --- end to end ---

func TestTranspileVIPReconvergence(t *testing.T) {
	flow := newFlow(startAt("Account", "Is_VIP"),
		decision("Is_VIP", "SetFlag",
			rule("VIP", "GetAccount", cond("$Record.Is_VIP__c", "EqualTo", schema.Bool(true)))),
		&schema.Element{
			Kind:      schema.KindRecordLookup,
			Name:      "GetAccount",
			Connector: to("SetFlag"),
			Lookup: &schema.LookupSpec{
				Object:             "Account",
				OutputReference:    "acct",
				QueriedFields:      []string{"Id", "Name"},
				GetFirstRecordOnly: true,
				Filters:            []schema.Filter{{Field: "Id", Operator: "EqualTo", Value: schema.Ref("$Record.AccountId")}},
			},
		},
		assign("SetFlag", "", "$Record.VIP_Flag__c", schema.Bool(true)),
	)
	flow.Label = "VIP Router"

	res := run(t, flow)

	want := strings.Join([]string{
		"// Flow: VIP Router",
		"// Type: Autolaunched Flow",
		"// Status: Active",
		"",
		"processFlow();",
		"private void processFlow() {",
		"    Account record = Trigger.new[0];",
		"    Account oldRecord = Trigger.old[0];",
		"",
		"",
		"    // Is_VIP",
		"    // Decision - Is_VIP",
		"    if (record.Is_VIP__c == true) {",
		"",
		"        // GetAccount",
		"        Account acct = [",
		"            SELECT Id, Name",
		"            FROM Account",
		"            WHERE Id = record.AccountId",
		"            LIMIT 1",
		"        ];",
		"",
		"        // SetFlag",
		"        record.VIP_Flag__c = true;",
		"    }",
		"}",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, res.Code)
	assert.Equal(t, 1, strings.Count(res.Code, "// SetFlag"))
	assert.NotContains(t, res.Code, "else")
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, 4, res.Stats.Elements)
	assert.Equal(t, 1, res.Stats.Procedures)
	assert.NotEmpty(t, res.RunID)
}

func TestTranspileNilFlow(t *testing.T) {
	_, err := newTestTranspiler().Transpile(context.Background(), nil)
	assert.Error(t, err)
}

func TestTranspileMissingStart(t *testing.T) {
	_, err := newTestTranspiler().Transpile(context.Background(), newFlow(nil))
	require.Error(t, err)
	var te *schema.TranspileError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, schema.ErrCodeMissingStart, te.Code)
}

func TestTranspileUnnamedDecisionIsFatal(t *testing.T) {
	d := decision("", "")
	flow := newFlow(startAt("", ""), d)

	tr := newTestTranspiler()
	w := tr.newWalker(context.Background(), flow, tr.logger)
	_, err := w.buildDecision(d)
	require.Error(t, err)
	var te *schema.TranspileError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, schema.ErrCodeValidation, te.Code)
	assert.Equal(t, schema.KindDecision, te.Kind)
}

func TestTranspileCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestTranspiler().Transpile(ctx, newFlow(startAt("", "A"), action("A", "")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTranspileHeaderAndDeclarations(t *testing.T) {
	flow := newFlow(startAt("Lead", "Apply"),
		&schema.Element{
			Kind:    schema.KindFormula,
			Name:    "Discount",
			Formula: &schema.FormulaSpec{DataType: "Decimal", Expression: "{!Amount} * 0.1"},
		},
		assign("Apply", "", "Total", schema.Ref("Discount")),
	)
	flow.ProcessType = "Flow"
	flow.Description = "Applies discounts.\nRuns nightly."
	flow.Variables = []schema.Variable{
		{Name: "Total", DataType: "Currency"},
		{Name: "Leads", DataType: "SObject", ObjectType: "Lead", IsCollection: true},
	}
	flow.Constants = []schema.Constant{{Name: "Rate", DataType: "Number", Value: schema.Number("0.2")}}

	res := run(t, flow)

	assert.Contains(t, res.Code, "// Type: Screen Flow\n")
	assert.Contains(t, res.Code, "// Description:\n//   Applies discounts.\n//   Runs nightly.\n")
	assert.Contains(t, res.Code, "// Variable Declarations\nCurrency Total;\nList<Lead> Leads = new List<Lead>();\n")
	assert.Contains(t, res.Code, "// Constants\nfinal Number Rate = 0.2;\n")
	assert.Contains(t, res.Code, "// Formulas\n\n// Discount\nprivate static Decimal getDiscount() {\n    return Amount * 0.1;\n}\n")
	assert.Contains(t, res.Code, "    Total = getDiscount();\n")
	assert.Equal(t, 1, strings.Count(res.Code, "// Discount"))
	assert.Less(t, strings.Index(res.Code, "getDiscount() {"), strings.Index(res.Code, "processFlow();"))
}

// --- decisions ---

func TestDecisionElseWhenDefaultEmits(t *testing.T) {
	flow := newFlow(startAt("Lead", "Route"),
		decision("Route", "Other",
			rule("Hot", "Escalate", cond("$Record.Rating", "EqualTo", schema.String("Hot"))),
			rule("Warm", "Nurture", cond("$Record.Rating", "EqualTo", schema.String("Warm")))),
		action("Escalate", ""),
		action("Nurture", ""),
		action("Other", ""),
	)

	res := run(t, flow)

	assert.Contains(t, res.Code, "    if (record.Rating == 'Hot') {\n")
	assert.Contains(t, res.Code, "    } else if (record.Rating == 'Warm') {\n")
	assert.Equal(t, 1, strings.Count(res.Code, "} else {"))
	assert.Contains(t, res.Code, "    } else {\n\n        // Other\n        // Action - Other\n        Other();\n    }\n")
}

func TestDecisionElseOmittedForEmptyDefault(t *testing.T) {
	flow := newFlow(startAt("Lead", "First"),
		action("First", "Route"),
		decision("Route", "First",
			rule("Hot", "Escalate", cond("$Record.Rating", "EqualTo", schema.String("Hot")))),
		action("Escalate", ""),
	)

	res := run(t, flow)

	assert.NotContains(t, res.Code, "else")
	assert.Contains(t, res.Code, "        Escalate();\n    }\n}\n")
}

func TestDecisionDanglingDefault(t *testing.T) {
	flow := newFlow(startAt("Lead", "Route"),
		decision("Route", "Missing",
			rule("Hot", "Escalate", cond("$Record.Rating", "EqualTo", schema.String("Hot")))),
		action("Escalate", ""),
	)

	res := run(t, flow)

	assert.NotContains(t, res.Code, "else")
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, schema.ErrCodeNotFound, res.Diagnostics[0].Code)
}

func TestDecisionWithoutUsableRulesRendersDefaultUnwrapped(t *testing.T) {
	flow := newFlow(startAt("Lead", "Route"),
		decision("Route", "Other", rule("Empty", "Escalate")),
		action("Escalate", ""),
		action("Other", ""),
	)

	res := run(t, flow)

	assert.NotContains(t, res.Code, "if (")
	assert.NotContains(t, res.Code, "Escalate")
	assert.Contains(t, res.Code, "    // Decision - Route\n\n    // Other\n")
}

func TestDecisionConditionLogic(t *testing.T) {
	conds := []schema.Condition{
		cond("$Record.Status", "EqualTo", schema.String("New")),
		cond("$Record.Amount", "GreaterThan", schema.Number("100")),
		cond("$Record.Email", "IsNull", schema.Bool(false)),
	}

	tests := []struct {
		name  string
		logic string
		want  string
		diags int
	}{
		{"default and", "", "if (record.Status == 'New' && record.Amount > 100 && record.Email != null) {", 0},
		{"or", "or", "if (record.Status == 'New' || record.Amount > 100 || record.Email != null) {", 0},
		{"custom", "1 AND (2 OR NOT(3))", "if ((record.Status == 'New') && ((record.Amount > 100) || !((record.Email != null)))) {", 0},
		{"custom lowercase", "1 or 3", "if ((record.Status == 'New') || (record.Email != null)) {", 0},
		{"malformed falls back", "1 AND", "if (record.Status == 'New' && record.Amount > 100 && record.Email != null) {", 1},
		{"index out of range", "1 AND 4", "if (record.Status == 'New' && record.Amount > 100 && record.Email != null) {", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rule("R", "Act", conds...)
			r.ConditionLogic = tt.logic
			res := run(t, newFlow(startAt("Lead", "Route"), decision("Route", "", r), action("Act", "")))

			assert.Contains(t, res.Code, tt.want)
			assert.Len(t, res.Diagnostics, tt.diags)
			for _, d := range res.Diagnostics {
				assert.Equal(t, schema.ErrCodeExpression, d.Code)
				assert.Equal(t, SeverityWarning, d.Severity)
			}
		})
	}
}

// --- loops ---

func TestLoopVariable(t *testing.T) {
	tests := map[string]string{
		"Linked_Leads": "l",
		"Accounts":     "a",
		"_contacts":    "c",
		"":             "item",
		"___":          "item",
	}
	for in, want := range tests {
		assert.Equal(t, want, LoopVariable(in), in)
	}
}

func TestLoopOverDeclaredCollection(t *testing.T) {
	flow := newFlow(startAt("Account", "Loop_Accounts"),
		loopOver("Loop_Accounts", "Accounts", "Rename", "Finish"),
		assign("Rename", "Loop_Accounts", "Loop_Accounts.Name", schema.String("x")),
		action("Finish", ""),
	)
	flow.Variables = []schema.Variable{{Name: "Accounts", DataType: "SObject", ObjectType: "Account", IsCollection: true}}

	res := run(t, flow)

	want := strings.Join([]string{
		"    // Loop - Loop_Accounts",
		"    for (Account a : Accounts) {",
		"        // Start of loop block",
		"",
		"        // Rename",
		"        a.Name = 'x';",
		"    }",
		"",
		"    // Finish",
	}, "\n")
	assert.Contains(t, res.Code, want)
	assert.Equal(t, 1, strings.Count(res.Code, "for ("))
	assert.Empty(t, res.Diagnostics)
}

func TestLoopInfersTypeFromLookup(t *testing.T) {
	flow := newFlow(startAt("Account", "Loop_Contacts"),
		loopOver("Loop_Contacts", "GetContacts", "Touch", ""),
		assign("Touch", "", "$Loop.Touched__c", schema.Bool(true)),
		&schema.Element{Kind: schema.KindRecordLookup, Name: "GetContacts", Lookup: &schema.LookupSpec{Object: "Contact"}},
	)

	res := run(t, flow)

	assert.Contains(t, res.Code, "for (Contact g : GetContacts) {")
	assert.Contains(t, res.Code, "g.Touched__c = true;")
}

func TestLoopDefaultsToSObject(t *testing.T) {
	res := run(t, newFlow(startAt("", "L"), loopOver("L", "Things", "", "")))

	assert.Contains(t, res.Code, "for (SObject t : Things) {")
	assert.Contains(t, res.Code, "        // Process SObject record\n    }\n")
}

func TestLoopWithoutCollection(t *testing.T) {
	res := run(t, newFlow(startAt("", "L"), loopOver("L", "", "A", "B"), action("A", ""), action("B", "")))

	assert.Contains(t, res.Code, "// ERROR: No collection reference found for loop L")
	assert.NotContains(t, res.Code, "for (")
	assert.NotContains(t, res.Code, "Action - B")
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, SeverityError, res.Diagnostics[0].Severity)
}

func TestNestedLoopsResolveInnermost(t *testing.T) {
	flow := newFlow(startAt("", "Outer"),
		loopOver("Outer", "Accounts", "Inner", ""),
		loopOver("Inner", "Contacts", "Link", "Outer"),
		assign("Link", "Inner", "$Loop.AccountId", schema.Ref("Outer.Id")),
	)

	res := run(t, flow)

	assert.Contains(t, res.Code, "    for (SObject a : Accounts) {\n")
	assert.Contains(t, res.Code, "        for (SObject c : Contacts) {\n")
	assert.Contains(t, res.Code, "            c.AccountId = a.Id;\n")
}

func TestClosedLoopNameIsNotRebased(t *testing.T) {
	flow := newFlow(startAt("", "L1"),
		loopOver("L1", "Accounts", "Mark", "L2"),
		assign("Mark", "L1", "$Loop.Seen__c", schema.Bool(true)),
		loopOver("L2", "Contacts", "Copy", ""),
		assign("Copy", "L2", "$Loop.Note__c", schema.Ref("L1.Name")),
	)

	res := run(t, flow)

	assert.Contains(t, res.Code, "a.Seen__c = true;")
	assert.Contains(t, res.Code, "c.Note__c = L1.Name;")
	assert.NotContains(t, res.Code, "a.Name")
}

func TestDecisionTargetingOpenLoopContinues(t *testing.T) {
	flow := newFlow(startAt("", "L"),
		loopOver("L", "Items", "Check", ""),
		decision("Check", "Work",
			rule("Skip", "L", cond("$Loop.Skip__c", "EqualTo", schema.Bool(true)))),
		assign("Work", "L", "$Loop.Done__c", schema.Bool(true)),
	)

	res := run(t, flow)

	assert.Contains(t, res.Code, "if (i.Skip__c == true) {\n        } else {\n")
	assert.Contains(t, res.Code, "i.Done__c = true;")
	assert.Empty(t, res.Diagnostics)
}

// --- goto promotion ---

func TestGotoPromotionIsIdempotent(t *testing.T) {
	pathA := assign("PathA", "", "x", schema.Number("1"))
	pathA.Connector = gotoTo("Shared")
	pathB := assign("PathB", "", "x", schema.Number("2"))
	pathB.Connector = gotoTo("Shared")

	flow := newFlow(startAt("", "Route"),
		decision("Route", "PathB",
			rule("A", "PathA", cond("$Record.Type", "EqualTo", schema.String("A")))),
		pathA,
		pathB,
		assign("Shared", "", "y", schema.Number("3")),
	)

	res := run(t, flow)

	assert.Equal(t, 1, strings.Count(res.Code, "private void Shared() {"))
	assert.Equal(t, 1, strings.Count(res.Code, "// Shared"))
	assert.Equal(t, 2, strings.Count(res.Code, "Shared();"))
	assert.Equal(t, 2, res.Stats.Procedures)
	assert.Contains(t, res.Code, "private void Shared() {\n\n    // Shared\n    y = 3;\n}\n")
}

func TestGotoPromotedLoopBackEdgeEndsBody(t *testing.T) {
	jump := assign("Jump", "", "Count", schema.Number("0"))
	jump.Connector = gotoTo("L")

	flow := newFlow(startAt("", "Jump"),
		jump,
		loopOver("L", "Accounts", "A", ""),
		assign("A", "L", "Count", schema.Number("1")),
	)

	res := run(t, flow)

	assert.Contains(t, res.Code, "private void L() {")
	assert.Contains(t, res.Code, "for (SObject a : Accounts) {")
	assert.Contains(t, res.Code, "Count = 1;\n    }\n")
	assert.Equal(t, 1, strings.Count(res.Code, "L();"), "back-edge must not call the loop procedure:\n%s", res.Code)
	assert.Empty(t, res.Diagnostics)
}

func TestGotoPromotedLookupReturnsOutput(t *testing.T) {
	start := startAt("Case", "")
	start.Connector = gotoTo("GetAcc")
	flow := newFlow(start,
		&schema.Element{
			Kind:      schema.KindRecordLookup,
			Name:      "GetAcc",
			Connector: to("Done"),
			Lookup:    &schema.LookupSpec{Object: "Account", OutputReference: "acct", GetFirstRecordOnly: true},
		},
		action("Done", ""),
	)

	res := run(t, flow)

	assert.Contains(t, res.Code, "private Account GetAcc() {\n")
	assert.Contains(t, res.Code, "    return acct;\n}\n")
	// The continuation stays with the caller.
	assert.Contains(t, res.Code, "    GetAcc();\n\n    // Done\n")
}

func TestGotoPromotedLookupWithSeveralOutputs(t *testing.T) {
	start := startAt("Case", "")
	start.Connector = gotoTo("GetAcc")
	flow := newFlow(start,
		&schema.Element{
			Kind: schema.KindRecordLookup,
			Name: "GetAcc",
			Lookup: &schema.LookupSpec{
				Object:             "Account",
				GetFirstRecordOnly: true,
				OutputAssignments: []schema.OutputAssignment{
					{AssignToReference: "accName", Field: "Name"},
					{AssignToReference: "accOwner", Field: "OwnerId"},
				},
			},
		},
	)

	res := run(t, flow)

	assert.Contains(t, res.Code, "private void GetAcc() {\n    // Returns: accName, accOwner\n")
	assert.NotContains(t, res.Code, "return ")
}

func TestGotoOverFaultConnectorIsNotPromoted(t *testing.T) {
	create := &schema.Element{
		Kind:   schema.KindRecordCreate,
		Name:   "Save",
		Create: &schema.CreateSpec{InputReference: "rec"},
		Fault:  &schema.Connector{Target: "LogError", IsGoTo: true, Kind: schema.ConnectorFault},
	}
	res := run(t, newFlow(startAt("", "Save"), create, action("LogError", "")))

	assert.Equal(t, 1, res.Stats.Procedures)
	assert.NotContains(t, res.Code, "private void LogError")
}

// --- fault handling ---

func TestFaultWrapping(t *testing.T) {
	create := &schema.Element{
		Kind:      schema.KindRecordCreate,
		Name:      "CreateTask",
		Connector: to("Notify"),
		Fault:     &schema.Connector{Target: "LogError", Kind: schema.ConnectorFault},
		Create: &schema.CreateSpec{
			Object:           "Task",
			InputAssignments: []schema.FieldAssignment{{Field: "Subject", Value: schema.String("Follow up")}},
		},
	}
	res := run(t, newFlow(startAt("Lead", "CreateTask"), create, action("Notify", ""), action("LogError", "")))

	want := strings.Join([]string{
		"    insert newRecord;",
		"    try {",
		"",
		"        // Notify",
		"        // Action - Notify",
		"        Notify();",
		"    } catch (Exception e) {",
		"",
		"        // LogError",
		"        // Action - LogError",
		"        LogError();",
		"    }",
	}, "\n")
	assert.Contains(t, res.Code, want)
}

// --- failures ---

func TestRendererErrorStopsContinuation(t *testing.T) {
	flow := newFlow(startAt("", "GetX"),
		&schema.Element{Kind: schema.KindRecordLookup, Name: "GetX", Connector: to("After"), Lookup: &schema.LookupSpec{}},
		action("After", ""),
	)

	res := run(t, flow)

	assert.Contains(t, res.Code, "    // ERROR: recordLookups GetX: missing required object\n")
	assert.NotContains(t, res.Code, "After")
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, schema.ErrCodeMissingField, d.Code)
	assert.Equal(t, "GetX", d.Element)
	assert.Equal(t, []string{"start", "GetX"}, d.Path)
	assert.True(t, res.HasErrors())
}

func TestUnknownKindStopsBranch(t *testing.T) {
	flow := newFlow(startAt("", "Body"),
		&schema.Element{Kind: schema.KindTextTemplate, Name: "Body", Connector: to("After"), Template: &schema.TemplateSpec{Text: "hi"}},
		action("After", ""),
	)

	res := run(t, flow)

	assert.NotContains(t, res.Code, "After")
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, schema.ErrCodeUnknownKind, res.Diagnostics[0].Code)
	assert.Equal(t, SeverityWarning, res.Diagnostics[0].Severity)
	assert.False(t, res.HasErrors())
}

func TestCycleOutsideLoopStopsSilently(t *testing.T) {
	res := run(t, newFlow(startAt("", "A"), action("A", "B"), action("B", "A")))

	assert.Equal(t, 1, strings.Count(res.Code, "A();"))
	assert.Equal(t, 1, strings.Count(res.Code, "B();"))
	assert.Empty(t, res.Diagnostics)
}

// --- start ---

func TestStartEntryCriteria(t *testing.T) {
	start := startAt("Lead", "")
	start.Start.Filters = []schema.Filter{
		{Field: "Status", Operator: "EqualTo", Value: schema.String("New")},
		{Field: "Rating", Operator: "IsChanged"},
	}

	res := run(t, newFlow(start))

	assert.Contains(t, res.Code, "    if (record.Status == 'New' && record.Rating != oldRecord.Rating) {\n        // Continue flow processing\n    }\n")
}

func TestStartEntryCriteriaOrLogic(t *testing.T) {
	start := startAt("Lead", "A")
	start.Start.FilterLogic = "or"
	start.Start.Filters = []schema.Filter{
		{Field: "IsHot__c", Operator: "EqualTo", Value: schema.Bool(true)},
		{Field: "Score__c", Operator: "GreaterThan", Value: schema.Number("80")},
	}

	res := run(t, newFlow(start, action("A", "")))

	assert.Contains(t, res.Code, "    if (record.IsHot__c == true || record.Score__c > 80) {\n\n        // A\n")
}

func TestStartScheduledPath(t *testing.T) {
	start := startAt("Opportunity", "")
	start.Start.ScheduledPaths = []schema.ScheduledPath{{Name: "Later", Connector: to("Remind"), OffsetNumber: "1", OffsetUnit: "Days"}}

	res := run(t, newFlow(start, action("Remind", "")))

	assert.Contains(t, res.Code, "    Opportunity record = Trigger.new[0];\n")
	assert.Contains(t, res.Code, "Remind();")
}

func TestStartDefaultsToSObject(t *testing.T) {
	res := run(t, newFlow(startAt("", "")))

	assert.Contains(t, res.Code, "    SObject record = Trigger.new[0];\n    SObject oldRecord = Trigger.old[0];\n")
}

func TestConcurrentRunsShareNothing(t *testing.T) {
	tr := newTestTranspiler()
	flow := newFlow(startAt("Lead", "A"), action("A", "B"), action("B", ""))

	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			res, err := tr.Transpile(context.Background(), flow)
			if err != nil {
				done <- err.Error()
				return
			}
			done <- res.Code
		}()
	}
	first := <-done
	for i := 1; i < 8; i++ {
		assert.Equal(t, first, <-done)
	}
}

func TestCheckBalanced(t *testing.T) {
	out := emit.NewBuffer()
	require.NoError(t, checkBalanced(out))

	out.OpenProcedure("Dangling", "")
	err := checkBalanced(out)
	var te *schema.TranspileError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, schema.ErrCodeOutput, te.Code)
	assert.Contains(t, te.Message, "procedure open true")

	require.NoError(t, out.CloseProcedure())
	scope := out.Indent()
	assert.ErrorContains(t, checkBalanced(out), "depth 1")
	scope.Close()
	assert.NoError(t, checkBalanced(out))
}
