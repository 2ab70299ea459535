package schema

import (
	"fmt"
	"strings"
)

// Kind identifies an element's node type. The value equals the XML element
// name of the kind's bucket in flow metadata.
type Kind string

const (
	KindStart        Kind = "start"
	KindDecision     Kind = "decisions"
	KindLoop         Kind = "loops"
	KindActionCall   Kind = "actionCalls"
	KindRecordLookup Kind = "recordLookups"
	KindRecordCreate Kind = "recordCreates"
	KindRecordUpdate Kind = "recordUpdates"
	KindRecordDelete Kind = "recordDeletes"
	KindAssignment   Kind = "assignments"
	KindFormula      Kind = "formulas"
	KindScreen       Kind = "screens"
	KindSubflow      Kind = "subflows"
	KindTextTemplate Kind = "textTemplates"
)

// kindOrder is the fixed bucket order used by name lookups.
var kindOrder = []Kind{
	KindDecision,
	KindRecordUpdate,
	KindFormula,
	KindRecordLookup,
	KindAssignment,
	KindActionCall,
	KindRecordCreate,
	KindRecordDelete,
	KindLoop,
	KindScreen,
	KindTextTemplate,
	KindSubflow,
	KindStart,
}

// Kinds returns every element kind in lookup order.
func Kinds() []Kind {
	out := make([]Kind, len(kindOrder))
	copy(out, kindOrder)
	return out
}

// ParseKind returns the kind for a bucket name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range kindOrder {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// ElementMap indexes elements by kind, then by name.
type ElementMap map[Kind]map[string]*Element

// NewElementMap indexes the flow's start element and its elements. When a
// name repeats within a kind the first declaration wins.
func NewElementMap(f *Flow) ElementMap {
	m := make(ElementMap)
	add := func(el *Element) {
		if el == nil {
			return
		}
		bucket, ok := m[el.Kind]
		if !ok {
			bucket = make(map[string]*Element)
			m[el.Kind] = bucket
		}
		if _, dup := bucket[el.Name]; !dup {
			bucket[el.Name] = el
		}
	}
	add(f.Start)
	for _, el := range f.Elements {
		add(el)
	}
	return m
}

// Get returns the element with the given kind and name.
func (m ElementMap) Get(kind Kind, name string) (*Element, bool) {
	el, ok := m[kind][name]
	return el, ok
}

// Find searches every kind bucket, in fixed order, for an element named name.
func (m ElementMap) Find(name string) (*Element, bool) {
	for _, k := range kindOrder {
		if el, ok := m[k][name]; ok {
			return el, true
		}
	}
	return nil, false
}

// Flow is the parsed, in-memory form of a flow document.
// Produced by the XML and JSON readers; consumed by the transpiler,
// validator, diagram builder and linter.
type Flow struct {
	Label       string     `json:"label"`
	ProcessType string     `json:"process_type,omitempty"`
	Status      string     `json:"status,omitempty"`
	Description string     `json:"description,omitempty"`
	APIVersion  string     `json:"api_version,omitempty"`
	Variables   []Variable `json:"variables,omitempty"`
	Constants   []Constant `json:"constants,omitempty"`
	Start       *Element   `json:"start,omitempty"`
	Elements    []*Element `json:"elements,omitempty"` // declaration order, start excluded
}

// Variable is a declared flow resource.
type Variable struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	ObjectType   string `json:"object_type,omitempty"`
	IsCollection bool   `json:"is_collection,omitempty"`
	IsInput      bool   `json:"is_input,omitempty"`
	IsOutput     bool   `json:"is_output,omitempty"`
	Value        *Value `json:"value,omitempty"`
}

// TypeName returns the pseudocode type of the variable.
func (v Variable) TypeName() string {
	base := v.DataType
	if v.DataType == "SObject" && v.ObjectType != "" {
		base = v.ObjectType
	}
	if base == "" {
		base = "Object"
	}
	if v.IsCollection {
		return "List<" + base + ">"
	}
	return base
}

// Constant is a named, immutable flow resource.
type Constant struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Value    *Value `json:"value,omitempty"`
}

// Value is a flow value: either a reference to another element or resource,
// or a typed literal. At most one field is set.
type Value struct {
	ElementReference string  `json:"element_reference,omitempty"`
	StringValue      *string `json:"string_value,omitempty"`
	BooleanValue     *bool   `json:"boolean_value,omitempty"`
	NumberValue      *string `json:"number_value,omitempty"`
	DateValue        *string `json:"date_value,omitempty"`
	DateTimeValue    *string `json:"date_time_value,omitempty"`
}

// IsZero reports whether the value carries neither a reference nor a literal.
func (v *Value) IsZero() bool {
	return v == nil || (v.ElementReference == "" && v.StringValue == nil && v.BooleanValue == nil &&
		v.NumberValue == nil && v.DateValue == nil && v.DateTimeValue == nil)
}

// Ref builds a reference value.
func Ref(name string) *Value { return &Value{ElementReference: name} }

// String builds a string literal value.
func String(s string) *Value { return &Value{StringValue: &s} }

// Bool builds a boolean literal value.
func Bool(b bool) *Value { return &Value{BooleanValue: &b} }

// Number builds a numeric literal value from its source text.
func Number(n string) *Value { return &Value{NumberValue: &n} }

// ConnectorKind distinguishes linear, fallback and error edges.
type ConnectorKind string

const (
	ConnectorNormal  ConnectorKind = "normal"
	ConnectorDefault ConnectorKind = "default"
	ConnectorFault   ConnectorKind = "fault"
)

// Connector is a directed edge to the element named Target.
type Connector struct {
	Target string        `json:"target"`
	IsGoTo bool          `json:"is_goto,omitempty"`
	Kind   ConnectorKind `json:"kind,omitempty"`
}

// Element is a single node of the flow graph. Kind selects which payload
// field is populated; the others stay nil.
type Element struct {
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	ID          string `json:"id,omitempty"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`

	Connector *Connector `json:"connector,omitempty"`
	Default   *Connector `json:"default_connector,omitempty"`
	Fault     *Connector `json:"fault_connector,omitempty"`

	Start      *StartSpec      `json:"start,omitempty"`
	Decision   *DecisionSpec   `json:"decision,omitempty"`
	Loop       *LoopSpec       `json:"loop,omitempty"`
	Action     *ActionSpec     `json:"action,omitempty"`
	Lookup     *LookupSpec     `json:"lookup,omitempty"`
	Create     *CreateSpec     `json:"create,omitempty"`
	Update     *UpdateSpec     `json:"update,omitempty"`
	Delete     *DeleteSpec     `json:"delete,omitempty"`
	Assignment *AssignmentSpec `json:"assignment,omitempty"`
	Formula    *FormulaSpec    `json:"formula,omitempty"`
	Screen     *ScreenSpec     `json:"screen,omitempty"`
	Subflow    *SubflowSpec    `json:"subflow,omitempty"`
	Template   *TemplateSpec   `json:"template,omitempty"`
}

// Key returns the element's identity for visited-set bookkeeping: the
// explicit id when present, otherwise kind/name, otherwise the pointer.
func (e *Element) Key() string {
	if e.ID != "" {
		return e.ID
	}
	if e.Name != "" {
		return string(e.Kind) + "/" + e.Name
	}
	return fmt.Sprintf("%p", e)
}

// DisplayName returns the name, or "unnamed" for anonymous elements.
func (e *Element) DisplayName() string {
	if e.Name == "" {
		return "unnamed"
	}
	return e.Name
}

// Edge is an outgoing connector together with a human-readable label.
type Edge struct {
	Label     string
	Connector *Connector
}

// Edges lists every outgoing connector of the element, including decision
// rule connectors, loop connectors and start scheduled paths.
func (e *Element) Edges() []Edge {
	var edges []Edge
	add := func(label string, c *Connector) {
		if c != nil && c.Target != "" {
			edges = append(edges, Edge{Label: label, Connector: c})
		}
	}
	if e.Decision != nil {
		for _, r := range e.Decision.Rules {
			label := r.Label
			if label == "" {
				label = r.Name
			}
			add(label, r.Connector)
		}
	}
	if e.Loop != nil {
		add("next", e.Loop.NextValue)
		add("done", e.Loop.NoMoreValues)
	}
	if e.Start != nil {
		for _, p := range e.Start.ScheduledPaths {
			add(p.Name, p.Connector)
		}
	}
	if e.Screen != nil {
		add("pause", e.Screen.PauseConnector)
	}
	add("", e.Connector)
	add("default", e.Default)
	add("fault", e.Fault)
	return edges
}

// StartSpec describes the trigger that starts a flow.
type StartSpec struct {
	Object            string          `json:"object,omitempty"`
	TriggerType       string          `json:"trigger_type,omitempty"`
	RecordTriggerType string          `json:"record_trigger_type,omitempty"`
	Filters           []Filter        `json:"filters,omitempty"`
	FilterLogic       string          `json:"filter_logic,omitempty"`
	ScheduledPaths    []ScheduledPath `json:"scheduled_paths,omitempty"`
}

// ScheduledPath is a deferred entry point of a record-triggered flow.
type ScheduledPath struct {
	Name         string     `json:"name,omitempty"`
	Connector    *Connector `json:"connector,omitempty"`
	OffsetNumber string     `json:"offset_number,omitempty"`
	OffsetUnit   string     `json:"offset_unit,omitempty"`
}

// Filter is a field comparison used by start entry criteria and record
// operations.
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    *Value `json:"value,omitempty"`
}

// DecisionSpec holds a decision's ordered outcomes.
type DecisionSpec struct {
	Rules []Rule `json:"rules"`
}

// Rule is one decision outcome.
type Rule struct {
	Name           string      `json:"name"`
	Label          string      `json:"label,omitempty"`
	ConditionLogic string      `json:"condition_logic,omitempty"`
	Conditions     []Condition `json:"conditions,omitempty"`
	Connector      *Connector  `json:"connector,omitempty"`
}

// Condition compares a referenced value against a right-hand value.
type Condition struct {
	LeftValueReference string `json:"left_value_reference"`
	Operator           string `json:"operator"`
	RightValue         *Value `json:"right_value,omitempty"`
}

// LoopSpec describes a for-each loop.
type LoopSpec struct {
	CollectionReference string     `json:"collection_reference"`
	IterationOrder      string     `json:"iteration_order,omitempty"`
	NextValue           *Connector `json:"next_value_connector,omitempty"`
	NoMoreValues        *Connector `json:"no_more_values_connector,omitempty"`
}

// Parameter is a named value passed to an action, subflow or screen.
type Parameter struct {
	Name  string `json:"name"`
	Value *Value `json:"value,omitempty"`
}

// ActionSpec describes an invocable action call.
type ActionSpec struct {
	ActionName      string      `json:"action_name,omitempty"`
	ActionType      string      `json:"action_type,omitempty"`
	InputParameters []Parameter `json:"input_parameters,omitempty"`
}

// OutputAssignment copies a queried field into a variable.
type OutputAssignment struct {
	AssignToReference string `json:"assign_to_reference"`
	Field             string `json:"field"`
}

// LookupSpec describes a record query.
type LookupSpec struct {
	Object             string             `json:"object"`
	OutputReference    string             `json:"output_reference,omitempty"`
	QueriedFields      []string           `json:"queried_fields,omitempty"`
	GetFirstRecordOnly bool               `json:"get_first_record_only,omitempty"`
	Filters            []Filter           `json:"filters,omitempty"`
	FilterLogic        string             `json:"filter_logic,omitempty"`
	SortField          string             `json:"sort_field,omitempty"`
	SortOrder          string             `json:"sort_order,omitempty"`
	OutputAssignments  []OutputAssignment `json:"output_assignments,omitempty"`
}

// FieldAssignment sets a record field.
type FieldAssignment struct {
	Field string `json:"field"`
	Value *Value `json:"value,omitempty"`
}

// CreateSpec describes a record insert.
type CreateSpec struct {
	Object           string            `json:"object,omitempty"`
	OutputReference  string            `json:"output_reference,omitempty"`
	InputReference   string            `json:"input_reference,omitempty"`
	InputAssignments []FieldAssignment `json:"input_assignments,omitempty"`
}

// UpdateSpec describes a record update.
type UpdateSpec struct {
	Object           string            `json:"object,omitempty"`
	InputReference   string            `json:"input_reference,omitempty"`
	Filters          []Filter          `json:"filters,omitempty"`
	InputAssignments []FieldAssignment `json:"input_assignments,omitempty"`
}

// DeleteSpec describes a record delete.
type DeleteSpec struct {
	Object         string   `json:"object,omitempty"`
	InputReference string   `json:"input_reference,omitempty"`
	Filters        []Filter `json:"filters,omitempty"`
}

// AssignmentSpec holds assignment items in order.
type AssignmentSpec struct {
	Items []AssignmentItem `json:"items"`
}

// AssignmentItem is a single `target op value` statement.
type AssignmentItem struct {
	AssignToReference string `json:"assign_to_reference"`
	Operator          string `json:"operator,omitempty"`
	Value             *Value `json:"value,omitempty"`
}

// FormulaSpec describes a computed resource.
type FormulaSpec struct {
	DataType   string `json:"data_type"`
	Expression string `json:"expression"`
}

// ScreenSpec describes a user-facing screen.
type ScreenSpec struct {
	Fields           []ScreenField `json:"fields,omitempty"`
	InputParameters  []Parameter   `json:"input_parameters,omitempty"`
	OutputParameters []Parameter   `json:"output_parameters,omitempty"`
	PauseConnector   *Connector    `json:"pause_connector,omitempty"`
}

// ScreenField is a display, input or component field on a screen.
type ScreenField struct {
	Name             string      `json:"name"`
	FieldType        string      `json:"field_type,omitempty"`
	DataType         string      `json:"data_type,omitempty"`
	FieldText        string      `json:"field_text,omitempty"`
	HelpText         string      `json:"help_text,omitempty"`
	ExtensionName    string      `json:"extension_name,omitempty"`
	IsRequired       bool        `json:"is_required,omitempty"`
	DefaultValue     *Value      `json:"default_value,omitempty"`
	ChoiceReferences []string    `json:"choice_references,omitempty"`
	Scale            string      `json:"scale,omitempty"`
	ValidationRule   string      `json:"validation_rule,omitempty"`
	VisibilityRule   string      `json:"visibility_rule,omitempty"`
	ResetOnRevisit   bool        `json:"reset_on_revisit,omitempty"`
	InputParameters  []Parameter `json:"input_parameters,omitempty"`
}

// SubflowSpec describes a call into another flow.
type SubflowSpec struct {
	FlowName          string             `json:"flow_name,omitempty"`
	InputAssignments  []Parameter        `json:"input_assignments,omitempty"`
	OutputAssignments []OutputAssignment `json:"output_assignments,omitempty"`
}

// TemplateSpec is a text template resource.
type TemplateSpec struct {
	Text string `json:"text"`
}

// ProcessTypeLabel maps a process type to its descriptive name.
func ProcessTypeLabel(processType string) string {
	switch processType {
	case "AutoLaunchedFlow":
		return "Autolaunched Flow"
	case "Flow":
		return "Screen Flow"
	case "Workflow":
		return "Workflow"
	case "RoutingFlow":
		return "Service Routing Flow"
	case "InvocableProcess":
		return "Process Builder"
	case "CustomEvent":
		return "Platform Event Flow"
	case "ContactRequest":
		return "Contact Request Flow"
	case "LoginFlow":
		return "Login Flow"
	case "Survey":
		return "Survey"
	case "SurveyResponse":
		return "Survey Response Flow"
	default:
		return processType
	}
}

// FormulaFunction returns the generated accessor name for a formula.
func FormulaFunction(name string) string {
	return "get" + strings.TrimSpace(name)
}
