// Package lint checks flows against CEL rules loaded from YAML.
package lint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rendis/flowscript/internal/expressions"
	"github.com/rendis/flowscript/internal/logging"
	"github.com/rendis/flowscript/pkg/schema"
)

// Finding is one rule match on one element.
type Finding struct {
	RuleID   string      `json:"rule_id"`
	Severity Severity    `json:"severity"`
	Kind     schema.Kind `json:"kind"`
	Element  string      `json:"element"`
	Message  string      `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s[%s] %s: %s", f.Severity, f.Kind, f.Element, f.RuleID, f.Message)
}

// Linter evaluates a fixed rule set. It is safe for concurrent use.
type Linter struct {
	rules  []Rule
	cel    *expressions.CELEngine
	logger *slog.Logger
}

// NewLinter compiles every rule's condition up front so a bad rule fails
// here instead of at lint time. A nil rule set means the built-in rules.
func NewLinter(rs *RuleSet, logger *slog.Logger) (*Linter, error) {
	if rs == nil {
		builtin, err := Builtin()
		if err != nil {
			return nil, err
		}
		rs = builtin
	}
	if logger == nil {
		logger = slog.Default()
	}

	engine, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	for _, r := range rs.Rules {
		if err := engine.Check(r.When); err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.ID, err)
		}
	}

	rules := make([]Rule, len(rs.Rules))
	copy(rules, rs.Rules)
	return &Linter{rules: rules, cel: engine, logger: logger}, nil
}

// Rules returns the rules this linter evaluates.
func (l *Linter) Rules() []Rule {
	out := make([]Rule, len(l.rules))
	copy(out, l.rules)
	return out
}

// Lint evaluates every rule against every element of a matching kind.
// Findings come out in element order, then rule order.
func (l *Linter) Lint(ctx context.Context, flow *schema.Flow) ([]Finding, error) {
	if flow == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "flow is nil")
	}
	ctx = logging.WithFlow(ctx, flow.Label)
	log := logging.LogWith(ctx, l.logger)

	flowScope := map[string]any{
		"label":        flow.Label,
		"process_type": flow.ProcessType,
		"status":       flow.Status,
	}
	membership := loopMembership(flow)

	elements := make([]*schema.Element, 0, len(flow.Elements)+1)
	if flow.Start != nil {
		elements = append(elements, flow.Start)
	}
	elements = append(elements, flow.Elements...)

	var findings []Finding
	for _, el := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var scope map[string]any
		for _, r := range l.rules {
			if !r.Applies(el.Kind) {
				continue
			}
			if scope == nil {
				var err error
				if scope, err = elementScope(el, membership[el]); err != nil {
					return nil, err
				}
			}
			data := map[string]any{"element": scope, "flow": flowScope}

			hit, err := l.cel.Match(ctx, r.When, data)
			if err != nil {
				return nil, fmt.Errorf("rule %q on %s[%s]: %w", r.ID, el.Kind, el.DisplayName(), err)
			}
			if !hit {
				continue
			}

			msg, err := expressions.Interpolate(r.Message, data)
			if err != nil {
				log.Warn("lint message interpolation failed", "rule", r.ID, "error", err)
				msg = r.Message
			}
			findings = append(findings, Finding{
				RuleID:   r.ID,
				Severity: r.Severity,
				Kind:     el.Kind,
				Element:  el.DisplayName(),
				Message:  msg,
			})
		}
	}

	log.Debug("lint complete", "rules", len(l.rules), "findings", len(findings))
	return findings, nil
}

// elementScope is the `element` variable seen by rules: the element's JSON
// form plus computed keys. description and label are always present; loops
// lists the enclosing loops and loop names the outermost one.
func elementScope(el *schema.Element, loops []string) (map[string]any, error) {
	raw, err := json.Marshal(el)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeOutput, "encode element %s: %s", el.DisplayName(), err.Error()).
			WithElement(el.Kind, el.Name).
			WithCause(err)
	}
	m := make(map[string]any)
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeOutput, "decode element %s: %s", el.DisplayName(), err.Error()).
			WithElement(el.Kind, el.Name).
			WithCause(err)
	}

	for _, key := range []string{"name", "description", "label"} {
		if _, ok := m[key]; !ok {
			m[key] = ""
		}
	}
	names := make([]any, len(loops))
	loop := ""
	for i, name := range loops {
		names[i] = name
	}
	if len(loops) > 0 {
		loop = loops[0]
	}
	m["loops"] = names
	m["loop"] = loop
	return m, nil
}

// loopMembership maps each element to the names of the loops whose body
// reaches it. A body is everything reachable from the loop's next-value
// connector without passing back through the loop itself.
func loopMembership(flow *schema.Flow) map[*schema.Element][]string {
	elements := schema.NewElementMap(flow)
	members := make(map[*schema.Element][]string)

	for _, loop := range flow.Elements {
		if loop.Kind != schema.KindLoop || loop.Loop == nil || loop.Loop.NextValue == nil {
			continue
		}
		first, ok := elements.Find(loop.Loop.NextValue.Target)
		if !ok {
			continue
		}

		seen := map[*schema.Element]bool{loop: true}
		queue := []*schema.Element{first}
		for len(queue) > 0 {
			el := queue[0]
			queue = queue[1:]
			if seen[el] {
				continue
			}
			seen[el] = true
			members[el] = append(members[el], loop.DisplayName())

			for _, e := range el.Edges() {
				if next, ok := elements.Find(e.Connector.Target); ok && !seen[next] {
					queue = append(queue, next)
				}
			}
		}
	}
	return members
}
