package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeParse        = "PARSE_ERROR"
	ErrCodeMissingStart = "MISSING_START"
	ErrCodeMissingField = "MISSING_FIELD"
	ErrCodeUnknownKind  = "UNKNOWN_KIND"
	ErrCodeCycle        = "CYCLE_DETECTED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeStore        = "STORE_ERROR"
	ErrCodeExpression   = "EXPRESSION_ERROR"
	ErrCodeOutput       = "OUTPUT_ERROR"
	ErrCodeConflict     = "CONFLICT"
)

// TranspileError is the structured error type for all flowscript operations.
type TranspileError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Kind    Kind           `json:"kind,omitempty"`
	Element string         `json:"element,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *TranspileError) Error() string {
	switch {
	case e.Kind != "" && e.Element != "":
		return fmt.Sprintf("[%s] %s %s: %s", e.Code, e.Kind, e.Element, e.Message)
	case e.Kind != "":
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Kind, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

func (e *TranspileError) Unwrap() error {
	return e.Cause
}

// NewError creates a new TranspileError.
func NewError(code, message string) *TranspileError {
	return &TranspileError{Code: code, Message: message}
}

// NewErrorf creates a new TranspileError with a formatted message.
func NewErrorf(code, format string, args ...any) *TranspileError {
	return &TranspileError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// MissingField reports a required field absent on an element.
func MissingField(kind Kind, element, field string) *TranspileError {
	return &TranspileError{
		Code:    ErrCodeMissingField,
		Message: fmt.Sprintf("missing required %s", field),
		Kind:    kind,
		Element: element,
		Details: map[string]any{"field": field},
	}
}

// WithElement attaches the offending element's kind and name.
func (e *TranspileError) WithElement(kind Kind, name string) *TranspileError {
	e.Kind = kind
	e.Element = name
	return e
}

// WithCause attaches an underlying cause.
func (e *TranspileError) WithCause(err error) *TranspileError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *TranspileError) WithDetails(details map[string]any) *TranspileError {
	e.Details = details
	return e
}
