package flowxml

import "encoding/xml"

// Wire structures for flow metadata documents. Tags carry no namespace so
// both namespaced and bare documents decode.

type xmlFlow struct {
	XMLName               xml.Name        `xml:"Flow"`
	Label                 string          `xml:"label"`
	ProcessType           string          `xml:"processType"`
	Status                string          `xml:"status"`
	Description           string          `xml:"description"`
	APIVersion            string          `xml:"apiVersion"`
	StartElementReference string          `xml:"startElementReference"`
	Variables             []xmlVariable   `xml:"variables"`
	Constants             []xmlConstant   `xml:"constants"`
	Start                 *xmlStart       `xml:"start"`
	ActionCalls           []xmlAction     `xml:"actionCalls"`
	Assignments           []xmlAssignment `xml:"assignments"`
	Decisions             []xmlDecision   `xml:"decisions"`
	Formulas              []xmlFormula    `xml:"formulas"`
	Loops                 []xmlLoop       `xml:"loops"`
	RecordCreates         []xmlCreate     `xml:"recordCreates"`
	RecordDeletes         []xmlDelete     `xml:"recordDeletes"`
	RecordLookups         []xmlLookup     `xml:"recordLookups"`
	RecordUpdates         []xmlUpdate     `xml:"recordUpdates"`
	Screens               []xmlScreen     `xml:"screens"`
	Subflows              []xmlSubflow    `xml:"subflows"`
	TextTemplates         []xmlTemplate   `xml:"textTemplates"`
}

// xmlBase carries the fields shared by every node element. Some exporters
// abbreviate <name> as <n>.
type xmlBase struct {
	Name             string        `xml:"name"`
	N                string        `xml:"n"`
	Label            string        `xml:"label"`
	Description      string        `xml:"description"`
	Connector        *xmlConnector `xml:"connector"`
	DefaultConnector *xmlConnector `xml:"defaultConnector"`
	FaultConnector   *xmlConnector `xml:"faultConnector"`
}

type xmlConnector struct {
	TargetReference string `xml:"targetReference"`
	IsGoTo          string `xml:"isGoTo"`
}

type xmlValue struct {
	ElementReference *string `xml:"elementReference"`
	StringValue      *string `xml:"stringValue"`
	BooleanValue     *string `xml:"booleanValue"`
	NumberValue      *string `xml:"numberValue"`
	DateValue        *string `xml:"dateValue"`
	DateTimeValue    *string `xml:"dateTimeValue"`
	Text             string  `xml:",chardata"`
}

type xmlVariable struct {
	Name         string    `xml:"name"`
	DataType     string    `xml:"dataType"`
	ObjectType   string    `xml:"objectType"`
	IsCollection string    `xml:"isCollection"`
	IsInput      string    `xml:"isInput"`
	IsOutput     string    `xml:"isOutput"`
	Value        *xmlValue `xml:"value"`
}

type xmlConstant struct {
	Name     string    `xml:"name"`
	DataType string    `xml:"dataType"`
	Value    *xmlValue `xml:"value"`
}

type xmlFilter struct {
	Field       string    `xml:"field"`
	Operator    string    `xml:"operator"`
	Value       *xmlValue `xml:"value"`
	StringValue *string   `xml:"stringValue"`
}

type xmlScheduledPath struct {
	Name         string        `xml:"name"`
	Connector    *xmlConnector `xml:"connector"`
	OffsetNumber string        `xml:"offsetNumber"`
	OffsetUnit   string        `xml:"offsetUnit"`
}

type xmlStart struct {
	xmlBase
	Object            string             `xml:"object"`
	TriggerType       string             `xml:"triggerType"`
	RecordTriggerType string             `xml:"recordTriggerType"`
	FilterLogic       string             `xml:"filterLogic"`
	Filters           []xmlFilter        `xml:"filters"`
	ScheduledPaths    []xmlScheduledPath `xml:"scheduledPaths"`
}

type xmlCondition struct {
	LeftValueReference string    `xml:"leftValueReference"`
	Operator           string    `xml:"operator"`
	RightValue         *xmlValue `xml:"rightValue"`
}

type xmlRule struct {
	Name           string         `xml:"name"`
	Label          string         `xml:"label"`
	ConditionLogic string         `xml:"conditionLogic"`
	Conditions     []xmlCondition `xml:"conditions"`
	Connector      *xmlConnector  `xml:"connector"`
}

type xmlDecision struct {
	xmlBase
	Rules []xmlRule `xml:"rules"`
}

type xmlLoop struct {
	xmlBase
	CollectionReference   string        `xml:"collectionReference"`
	IterationOrder        string        `xml:"iterationOrder"`
	NextValueConnector    *xmlConnector `xml:"nextValueConnector"`
	NoMoreValuesConnector *xmlConnector `xml:"noMoreValuesConnector"`
}

type xmlParameter struct {
	Name  string    `xml:"name"`
	Value *xmlValue `xml:"value"`
}

type xmlAction struct {
	xmlBase
	ActionName      string         `xml:"actionName"`
	ActionType      string         `xml:"actionType"`
	InputParameters []xmlParameter `xml:"inputParameters"`
}

type xmlOutputAssignment struct {
	AssignToReference string `xml:"assignToReference"`
	Field             string `xml:"field"`
	Name              string `xml:"name"`
}

type xmlLookup struct {
	xmlBase
	Object             string                `xml:"object"`
	OutputReference    string                `xml:"outputReference"`
	QueriedFields      []string              `xml:"queriedFields"`
	GetFirstRecordOnly string                `xml:"getFirstRecordOnly"`
	FilterLogic        string                `xml:"filterLogic"`
	Filters            []xmlFilter           `xml:"filters"`
	SortField          string                `xml:"sortField"`
	SortOrder          string                `xml:"sortOrder"`
	OutputAssignments  []xmlOutputAssignment `xml:"outputAssignments"`
}

type xmlFieldAssignment struct {
	Field string    `xml:"field"`
	Value *xmlValue `xml:"value"`
}

type xmlCreate struct {
	xmlBase
	Object           string               `xml:"object"`
	OutputReference  string               `xml:"outputReference"`
	InputReference   string               `xml:"inputReference"`
	InputAssignments []xmlFieldAssignment `xml:"inputAssignments"`
}

type xmlUpdate struct {
	xmlBase
	Object           string               `xml:"object"`
	InputReference   string               `xml:"inputReference"`
	Filters          []xmlFilter          `xml:"filters"`
	InputAssignments []xmlFieldAssignment `xml:"inputAssignments"`
}

type xmlDelete struct {
	xmlBase
	Object         string      `xml:"object"`
	InputReference string      `xml:"inputReference"`
	Filters        []xmlFilter `xml:"filters"`
}

type xmlAssignmentItem struct {
	AssignToReference string    `xml:"assignToReference"`
	Operator          string    `xml:"operator"`
	Value             *xmlValue `xml:"value"`
}

type xmlAssignment struct {
	xmlBase
	AssignmentItems []xmlAssignmentItem `xml:"assignmentItems"`
}

type xmlFormula struct {
	xmlBase
	DataType   string `xml:"dataType"`
	Expression string `xml:"expression"`
}

type xmlRuleText struct {
	FormulaExpression string         `xml:"formulaExpression"`
	ErrorMessage      string         `xml:"errorMessage"`
	ConditionLogic    string         `xml:"conditionLogic"`
	Conditions        []xmlCondition `xml:"conditions"`
	Text              string         `xml:",chardata"`
}

type xmlScreenField struct {
	Name                       string         `xml:"name"`
	FieldType                  string         `xml:"fieldType"`
	DataType                   string         `xml:"dataType"`
	FieldText                  string         `xml:"fieldText"`
	HelpText                   string         `xml:"helpText"`
	ExtensionName              string         `xml:"extensionName"`
	IsRequired                 string         `xml:"isRequired"`
	DefaultValue               *xmlValue      `xml:"defaultValue"`
	ChoiceReferences           []string       `xml:"choiceReferences"`
	Scale                      string         `xml:"scale"`
	ValidationRule             *xmlRuleText   `xml:"validationRule"`
	VisibilityRule             *xmlRuleText   `xml:"visibilityRule"`
	InputsOnNextNavToAssocScrn string         `xml:"inputsOnNextNavToAssocScrn"`
	InputParameters            []xmlParameter `xml:"inputParameters"`
}

type xmlScreen struct {
	xmlBase
	Fields           []xmlScreenField `xml:"fields"`
	InputParameters  []xmlParameter   `xml:"inputParameters"`
	OutputParameters []xmlParameter   `xml:"outputParameters"`
	PauseConnector   *xmlConnector    `xml:"pauseConnector"`
}

type xmlSubflow struct {
	xmlBase
	FlowName          string                `xml:"flowName"`
	InputParameters   []xmlParameter        `xml:"inputParameters"`
	InputAssignments  []xmlParameter        `xml:"inputAssignments"`
	OutputAssignments []xmlOutputAssignment `xml:"outputAssignments"`
}

type xmlTemplate struct {
	xmlBase
	Text string `xml:"text"`
}
