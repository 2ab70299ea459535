package schema

import "fmt"

// ValidationSeverity separates issues that block transpilation from advisory
// ones.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is one problem found in a flow. Path locates it, for
// example "decisions[Is_VIP].rules[0]".
type ValidationIssue struct {
	Path     string             `json:"path"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

// String renders the issue as "severity CODE path: message".
func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s %s %s: %s", i.Severity, i.Code, i.Path, i.Message)
}

// ValidationResult collects the issues of a validation run. Only errors make
// a flow invalid.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }

func (r *ValidationResult) AddError(path, code, message string) {
	r.add(ValidationIssue{Path: path, Code: code, Message: message, Severity: SeverityError})
}

func (r *ValidationResult) AddWarning(path, code, message string) {
	r.add(ValidationIssue{Path: path, Code: code, Message: message, Severity: SeverityWarning})
}

func (r *ValidationResult) add(issue ValidationIssue) {
	if issue.Severity == SeverityError {
		r.Errors = append(r.Errors, issue)
		return
	}
	r.Warnings = append(r.Warnings, issue)
}

// Merge appends the issues of other, which may be nil.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for _, issue := range other.Issues() {
		r.add(issue)
	}
}

// Issues lists errors before warnings.
func (r *ValidationResult) Issues() []ValidationIssue {
	return append(append(make([]ValidationIssue, 0, len(r.Errors)+len(r.Warnings)), r.Errors...), r.Warnings...)
}

// ToError reports an invalid result as a VALIDATION_ERROR naming the first
// error. It returns nil when the result is valid.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}
	first := r.Errors[0]
	msg := fmt.Sprintf("%s: %s", first.Path, first.Message)
	if extra := len(r.Errors) - 1; extra > 0 {
		msg = fmt.Sprintf("%s (and %d more errors)", msg, extra)
	}
	return NewError(ErrCodeValidation, msg).WithDetails(map[string]any{
		"errors":   len(r.Errors),
		"warnings": len(r.Warnings),
		"issues":   r.Issues(),
	})
}
