package lint

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rendis/flowscript/pkg/schema"
)

// Severity grades a lint finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rule is a single lint check. When is a CEL expression over `element` and
// `flow`; a true result produces a finding. An empty Kinds list matches
// every element kind except the start element.
type Rule struct {
	ID       string   `yaml:"id"`
	Severity Severity `yaml:"severity"`
	Kinds    []string `yaml:"kinds,omitempty"`
	When     string   `yaml:"when"`
	Message  string   `yaml:"message"`
}

// Applies reports whether the rule inspects elements of kind k.
func (r Rule) Applies(k schema.Kind) bool {
	if len(r.Kinds) == 0 {
		return k != schema.KindStart
	}
	for _, want := range r.Kinds {
		if want == string(k) {
			return true
		}
	}
	return false
}

// RuleSet is the top-level shape of a rules file.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// ParseRules decodes a YAML rules document and checks each rule's shape.
// CEL expressions are compiled later, by NewLinter.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeParse, "parse rules: %s", err.Error()).WithCause(err)
	}

	seen := make(map[string]bool, len(rs.Rules))
	for i := range rs.Rules {
		r := &rs.Rules[i]
		if r.ID == "" {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "rules[%d]: id is required", i)
		}
		if seen[r.ID] {
			return nil, schema.NewErrorf(schema.ErrCodeConflict, "rules[%d]: duplicate rule id %q", i, r.ID)
		}
		seen[r.ID] = true

		if r.When == "" {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "rule %q: when is required", r.ID)
		}
		switch r.Severity {
		case "":
			r.Severity = SeverityWarning
		case SeverityError, SeverityWarning, SeverityInfo:
		default:
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"rule %q: unknown severity %q (want error, warning or info)", r.ID, r.Severity)
		}
		for _, k := range r.Kinds {
			if _, ok := schema.ParseKind(k); !ok {
				return nil, schema.NewErrorf(schema.ErrCodeUnknownKind, "rule %q: unknown kind %q", r.ID, k)
			}
		}
		if r.Message == "" {
			r.Message = r.ID
		}
	}
	return &rs, nil
}

// LoadFile reads and parses a YAML rules file.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	rs, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return rs, nil
}
