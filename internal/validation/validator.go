package validation

import "github.com/rendis/flowscript/pkg/schema"

// Validator checks parsed flows for structural problems before they are
// transpiled.
type Validator interface {
	Validate(flow *schema.Flow) *schema.ValidationResult
}

// FlowValidator runs the two-stage validation pipeline:
// 1. Semantic (start, names, connector targets, loop collections)
// 2. Graph (reachability, goto-only targets, cycles outside loops)
type FlowValidator struct{}

// NewFlowValidator creates a FlowValidator.
func NewFlowValidator() *FlowValidator {
	return &FlowValidator{}
}

// Validate runs the full pipeline and returns an aggregated result. Graph
// analysis is skipped when the flow has no start element.
func (fv *FlowValidator) Validate(flow *schema.Flow) *schema.ValidationResult {
	if flow == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "flow is nil")
		return r
	}

	result := validateSemantic(flow)
	if flow.Start != nil {
		result.Merge(validateGraph(flow))
	}
	return result
}

// ValidateFlow returns the pipeline result as an error, nil when valid.
func (fv *FlowValidator) ValidateFlow(flow *schema.Flow) error {
	return fv.Validate(flow).ToError()
}
