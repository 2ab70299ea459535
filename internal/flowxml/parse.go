// Package flowxml reads flow metadata XML documents into schema.Flow.
package flowxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rendis/flowscript/pkg/schema"
)

// Parse decodes a flow metadata document.
func Parse(r io.Reader) (*schema.Flow, error) {
	var doc xmlFlow
	dec := xml.NewDecoder(r)
	dec.Strict = false
	if err := dec.Decode(&doc); err != nil {
		return nil, schema.NewError(schema.ErrCodeParse, "invalid flow XML").WithCause(err)
	}
	return convert(&doc), nil
}

// ParseBytes decodes a flow metadata document held in memory.
func ParseBytes(data []byte) (*schema.Flow, error) {
	return Parse(bytes.NewReader(data))
}

// ParseFile reads and decodes the flow metadata file at path.
func ParseFile(path string) (*schema.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeParse, "read %s", path).WithCause(err)
	}
	return ParseBytes(data)
}

func convert(doc *xmlFlow) *schema.Flow {
	f := &schema.Flow{
		Label:       strings.TrimSpace(doc.Label),
		ProcessType: strings.TrimSpace(doc.ProcessType),
		Status:      strings.TrimSpace(doc.Status),
		Description: doc.Description,
		APIVersion:  strings.TrimSpace(doc.APIVersion),
	}

	for _, v := range doc.Variables {
		f.Variables = append(f.Variables, schema.Variable{
			Name:         v.Name,
			DataType:     v.DataType,
			ObjectType:   v.ObjectType,
			IsCollection: parseBool(v.IsCollection),
			IsInput:      parseBool(v.IsInput),
			IsOutput:     parseBool(v.IsOutput),
			Value:        convertValue(v.Value),
		})
	}
	for _, c := range doc.Constants {
		f.Constants = append(f.Constants, schema.Constant{
			Name: c.Name, DataType: c.DataType, Value: convertValue(c.Value),
		})
	}

	switch {
	case doc.Start != nil:
		f.Start = convertStart(doc.Start)
	case doc.StartElementReference != "":
		// Legacy documents name the first element instead of declaring a start node.
		f.Start = &schema.Element{
			Kind:      schema.KindStart,
			Name:      "start",
			Connector: &schema.Connector{Target: doc.StartElementReference, Kind: schema.ConnectorNormal},
			Start:     &schema.StartSpec{},
		}
	}

	add := func(el *schema.Element) { f.Elements = append(f.Elements, el) }
	for i := range doc.ActionCalls {
		add(convertAction(&doc.ActionCalls[i]))
	}
	for i := range doc.Assignments {
		add(convertAssignment(&doc.Assignments[i]))
	}
	for i := range doc.Decisions {
		add(convertDecision(&doc.Decisions[i]))
	}
	for i := range doc.Formulas {
		add(convertFormula(&doc.Formulas[i]))
	}
	for i := range doc.Loops {
		add(convertLoop(&doc.Loops[i]))
	}
	for i := range doc.RecordCreates {
		add(convertCreate(&doc.RecordCreates[i]))
	}
	for i := range doc.RecordDeletes {
		add(convertDelete(&doc.RecordDeletes[i]))
	}
	for i := range doc.RecordLookups {
		add(convertLookup(&doc.RecordLookups[i]))
	}
	for i := range doc.RecordUpdates {
		add(convertUpdate(&doc.RecordUpdates[i]))
	}
	for i := range doc.Screens {
		add(convertScreen(&doc.Screens[i]))
	}
	for i := range doc.Subflows {
		add(convertSubflow(&doc.Subflows[i]))
	}
	for i := range doc.TextTemplates {
		t := &doc.TextTemplates[i]
		el := base(schema.KindTextTemplate, &t.xmlBase)
		el.Template = &schema.TemplateSpec{Text: t.Text}
		add(el)
	}
	return f
}

func base(kind schema.Kind, b *xmlBase) *schema.Element {
	name := strings.TrimSpace(b.Name)
	if name == "" {
		name = strings.TrimSpace(b.N)
	}
	return &schema.Element{
		Kind:        kind,
		Name:        name,
		Label:       b.Label,
		Description: b.Description,
		Connector:   convertConnector(b.Connector, schema.ConnectorNormal),
		Default:     convertConnector(b.DefaultConnector, schema.ConnectorDefault),
		Fault:       convertConnector(b.FaultConnector, schema.ConnectorFault),
	}
}

func convertConnector(c *xmlConnector, kind schema.ConnectorKind) *schema.Connector {
	if c == nil || strings.TrimSpace(c.TargetReference) == "" {
		return nil
	}
	return &schema.Connector{
		Target: strings.TrimSpace(c.TargetReference),
		IsGoTo: parseBool(c.IsGoTo),
		Kind:   kind,
	}
}

func convertValue(v *xmlValue) *schema.Value {
	if v == nil {
		return nil
	}
	out := &schema.Value{
		StringValue:   v.StringValue,
		NumberValue:   v.NumberValue,
		DateValue:     v.DateValue,
		DateTimeValue: v.DateTimeValue,
	}
	if v.ElementReference != nil {
		out.ElementReference = strings.TrimSpace(*v.ElementReference)
	}
	if v.BooleanValue != nil {
		b := parseBool(*v.BooleanValue)
		out.BooleanValue = &b
	}
	if out.IsZero() {
		if text := strings.TrimSpace(v.Text); text != "" {
			out.StringValue = &text
		} else {
			return nil
		}
	}
	return out
}

func convertFilters(in []xmlFilter) []schema.Filter {
	var out []schema.Filter
	for _, f := range in {
		val := convertValue(f.Value)
		if val == nil && f.StringValue != nil {
			val = schema.String(*f.StringValue)
		}
		out = append(out, schema.Filter{Field: f.Field, Operator: f.Operator, Value: val})
	}
	return out
}

func convertParameters(in []xmlParameter) []schema.Parameter {
	var out []schema.Parameter
	for _, p := range in {
		out = append(out, schema.Parameter{Name: p.Name, Value: convertValue(p.Value)})
	}
	return out
}

func convertOutputs(in []xmlOutputAssignment) []schema.OutputAssignment {
	var out []schema.OutputAssignment
	for _, o := range in {
		field := o.Field
		if field == "" {
			field = o.Name
		}
		out = append(out, schema.OutputAssignment{AssignToReference: o.AssignToReference, Field: field})
	}
	return out
}

func convertFieldAssignments(in []xmlFieldAssignment) []schema.FieldAssignment {
	var out []schema.FieldAssignment
	for _, a := range in {
		out = append(out, schema.FieldAssignment{Field: a.Field, Value: convertValue(a.Value)})
	}
	return out
}

func convertConditions(in []xmlCondition) []schema.Condition {
	var out []schema.Condition
	for _, c := range in {
		out = append(out, schema.Condition{
			LeftValueReference: c.LeftValueReference,
			Operator:           c.Operator,
			RightValue:         convertValue(c.RightValue),
		})
	}
	return out
}

func convertStart(s *xmlStart) *schema.Element {
	el := base(schema.KindStart, &s.xmlBase)
	if el.Name == "" {
		el.Name = "start"
	}
	spec := &schema.StartSpec{
		Object:            s.Object,
		TriggerType:       s.TriggerType,
		RecordTriggerType: s.RecordTriggerType,
		Filters:           convertFilters(s.Filters),
		FilterLogic:       s.FilterLogic,
	}
	for _, p := range s.ScheduledPaths {
		spec.ScheduledPaths = append(spec.ScheduledPaths, schema.ScheduledPath{
			Name:         p.Name,
			Connector:    convertConnector(p.Connector, schema.ConnectorNormal),
			OffsetNumber: p.OffsetNumber,
			OffsetUnit:   p.OffsetUnit,
		})
	}
	el.Start = spec
	return el
}

func convertDecision(d *xmlDecision) *schema.Element {
	el := base(schema.KindDecision, &d.xmlBase)
	spec := &schema.DecisionSpec{}
	for _, r := range d.Rules {
		spec.Rules = append(spec.Rules, schema.Rule{
			Name:           r.Name,
			Label:          r.Label,
			ConditionLogic: r.ConditionLogic,
			Conditions:     convertConditions(r.Conditions),
			Connector:      convertConnector(r.Connector, schema.ConnectorNormal),
		})
	}
	el.Decision = spec
	return el
}

func convertLoop(l *xmlLoop) *schema.Element {
	el := base(schema.KindLoop, &l.xmlBase)
	el.Loop = &schema.LoopSpec{
		CollectionReference: strings.TrimSpace(l.CollectionReference),
		IterationOrder:      l.IterationOrder,
		NextValue:           convertConnector(l.NextValueConnector, schema.ConnectorNormal),
		NoMoreValues:        convertConnector(l.NoMoreValuesConnector, schema.ConnectorNormal),
	}
	return el
}

func convertAction(a *xmlAction) *schema.Element {
	el := base(schema.KindActionCall, &a.xmlBase)
	el.Action = &schema.ActionSpec{
		ActionName:      a.ActionName,
		ActionType:      a.ActionType,
		InputParameters: convertParameters(a.InputParameters),
	}
	return el
}

func convertLookup(l *xmlLookup) *schema.Element {
	el := base(schema.KindRecordLookup, &l.xmlBase)
	el.Lookup = &schema.LookupSpec{
		Object:             strings.TrimSpace(l.Object),
		OutputReference:    strings.TrimSpace(l.OutputReference),
		QueriedFields:      l.QueriedFields,
		GetFirstRecordOnly: parseBool(l.GetFirstRecordOnly),
		Filters:            convertFilters(l.Filters),
		FilterLogic:        l.FilterLogic,
		SortField:          l.SortField,
		SortOrder:          l.SortOrder,
		OutputAssignments:  convertOutputs(l.OutputAssignments),
	}
	return el
}

func convertCreate(c *xmlCreate) *schema.Element {
	el := base(schema.KindRecordCreate, &c.xmlBase)
	el.Create = &schema.CreateSpec{
		Object:           c.Object,
		OutputReference:  c.OutputReference,
		InputReference:   c.InputReference,
		InputAssignments: convertFieldAssignments(c.InputAssignments),
	}
	return el
}

func convertUpdate(u *xmlUpdate) *schema.Element {
	el := base(schema.KindRecordUpdate, &u.xmlBase)
	el.Update = &schema.UpdateSpec{
		Object:           u.Object,
		InputReference:   u.InputReference,
		Filters:          convertFilters(u.Filters),
		InputAssignments: convertFieldAssignments(u.InputAssignments),
	}
	return el
}

func convertDelete(d *xmlDelete) *schema.Element {
	el := base(schema.KindRecordDelete, &d.xmlBase)
	el.Delete = &schema.DeleteSpec{
		Object:         d.Object,
		InputReference: d.InputReference,
		Filters:        convertFilters(d.Filters),
	}
	return el
}

func convertAssignment(a *xmlAssignment) *schema.Element {
	el := base(schema.KindAssignment, &a.xmlBase)
	spec := &schema.AssignmentSpec{}
	for _, item := range a.AssignmentItems {
		spec.Items = append(spec.Items, schema.AssignmentItem{
			AssignToReference: strings.TrimSpace(item.AssignToReference),
			Operator:          item.Operator,
			Value:             convertValue(item.Value),
		})
	}
	el.Assignment = spec
	return el
}

func convertFormula(f *xmlFormula) *schema.Element {
	el := base(schema.KindFormula, &f.xmlBase)
	el.Formula = &schema.FormulaSpec{DataType: f.DataType, Expression: f.Expression}
	return el
}

func convertScreen(s *xmlScreen) *schema.Element {
	el := base(schema.KindScreen, &s.xmlBase)
	spec := &schema.ScreenSpec{
		InputParameters:  convertParameters(s.InputParameters),
		OutputParameters: convertParameters(s.OutputParameters),
		PauseConnector:   convertConnector(s.PauseConnector, schema.ConnectorNormal),
	}
	for _, fld := range s.Fields {
		spec.Fields = append(spec.Fields, schema.ScreenField{
			Name:             fld.Name,
			FieldType:        fld.FieldType,
			DataType:         fld.DataType,
			FieldText:        fld.FieldText,
			HelpText:         fld.HelpText,
			ExtensionName:    fld.ExtensionName,
			IsRequired:       parseBool(fld.IsRequired),
			DefaultValue:     convertValue(fld.DefaultValue),
			ChoiceReferences: fld.ChoiceReferences,
			Scale:            fld.Scale,
			ValidationRule:   ruleText(fld.ValidationRule),
			VisibilityRule:   ruleText(fld.VisibilityRule),
			ResetOnRevisit:   fld.InputsOnNextNavToAssocScrn == "ResetValues",
			InputParameters:  convertParameters(fld.InputParameters),
		})
	}
	el.Screen = spec
	return el
}

func convertSubflow(s *xmlSubflow) *schema.Element {
	el := base(schema.KindSubflow, &s.xmlBase)
	inputs := convertParameters(s.InputParameters)
	inputs = append(inputs, convertParameters(s.InputAssignments)...)
	el.Subflow = &schema.SubflowSpec{
		FlowName:          s.FlowName,
		InputAssignments:  inputs,
		OutputAssignments: convertOutputs(s.OutputAssignments),
	}
	return el
}

// ruleText flattens a validation or visibility rule into one line.
func ruleText(r *xmlRuleText) string {
	if r == nil {
		return ""
	}
	if r.FormulaExpression != "" {
		if r.ErrorMessage != "" {
			return fmt.Sprintf("%s (%s)", strings.TrimSpace(r.FormulaExpression), strings.TrimSpace(r.ErrorMessage))
		}
		return strings.TrimSpace(r.FormulaExpression)
	}
	if len(r.Conditions) > 0 {
		joiner := " AND "
		if strings.EqualFold(r.ConditionLogic, "or") {
			joiner = " OR "
		}
		parts := make([]string, 0, len(r.Conditions))
		for _, c := range r.Conditions {
			part := c.LeftValueReference + " " + c.Operator
			if v := convertValue(c.RightValue); v != nil {
				part += " " + literal(v)
			}
			parts = append(parts, part)
		}
		return strings.Join(parts, joiner)
	}
	return strings.TrimSpace(r.Text)
}

func literal(v *schema.Value) string {
	switch {
	case v.ElementReference != "":
		return v.ElementReference
	case v.StringValue != nil:
		return "'" + *v.StringValue + "'"
	case v.BooleanValue != nil:
		return fmt.Sprint(*v.BooleanValue)
	case v.NumberValue != nil:
		return *v.NumberValue
	}
	return ""
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
