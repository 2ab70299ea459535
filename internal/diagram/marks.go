package diagram

import "github.com/rendis/flowscript/internal/transpile"

// MarksFromDiagnostics keys transpile diagnostics by element name. An error
// outranks a warning on the same element; otherwise the first one wins.
func MarksFromDiagnostics(diags []transpile.Diagnostic) map[string]Mark {
	marks := make(map[string]Mark)
	for _, d := range diags {
		if d.Element == "" {
			continue
		}
		severity := MarkWarning
		if d.Severity == transpile.SeverityError {
			severity = MarkError
		}
		if prev, ok := marks[d.Element]; ok && (prev.Severity == MarkError || severity == MarkWarning) {
			continue
		}
		marks[d.Element] = Mark{Severity: severity, Message: d.Message}
	}
	return marks
}
