package validation

import (
	"fmt"
	"strings"

	"github.com/rendis/flowscript/pkg/schema"
)

// validateSemantic performs per-element checks on the flow.
// Checks: start present, decisions named, names unique within a kind,
// connector targets exist, loops have a collection.
func validateSemantic(flow *schema.Flow) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	elements := schema.NewElementMap(flow)

	if flow.Start == nil {
		result.AddError("start", schema.ErrCodeMissingStart, "flow has no start element")
	} else {
		validateConnectors(flow.Start, "start", elements, result)
	}

	seen := make(map[schema.Kind]map[string]bool)
	for i, el := range flow.Elements {
		path := elementPath(el, i)

		if el.Name == "" {
			if el.Kind == schema.KindDecision {
				result.AddError(path, schema.ErrCodeValidation, "decision has no name")
			} else {
				result.AddWarning(path, schema.ErrCodeMissingField, fmt.Sprintf("%s element has no name", el.Kind))
			}
		} else {
			if seen[el.Kind] == nil {
				seen[el.Kind] = make(map[string]bool)
			}
			if seen[el.Kind][el.Name] {
				result.AddError(path, schema.ErrCodeConflict,
					fmt.Sprintf("duplicate %s name %q", el.Kind, el.Name))
			}
			seen[el.Kind][el.Name] = true
		}

		if el.Kind == schema.KindLoop && (el.Loop == nil || strings.TrimSpace(el.Loop.CollectionReference) == "") {
			result.AddWarning(path+".collection_reference", schema.ErrCodeMissingField,
				fmt.Sprintf("loop %q has no collection reference", el.Name))
		}

		validateConnectors(el, path, elements, result)
	}

	return result
}

// validateConnectors checks that every outgoing connector names a known
// element.
func validateConnectors(el *schema.Element, path string, elements schema.ElementMap, result *schema.ValidationResult) {
	for _, edge := range el.Edges() {
		if _, ok := elements.Find(edge.Connector.Target); ok {
			continue
		}
		result.AddError(connectorPath(path, edge), schema.ErrCodeNotFound,
			fmt.Sprintf("references non-existent element %q", edge.Connector.Target))
	}
}

// elementPath locates an element as kind[name], or kind[#index] when
// unnamed.
func elementPath(el *schema.Element, index int) string {
	if el.Name == "" {
		return fmt.Sprintf("%s[#%d]", el.Kind, index)
	}
	return fmt.Sprintf("%s[%s]", el.Kind, el.Name)
}

func connectorPath(path string, edge schema.Edge) string {
	switch edge.Connector.Kind {
	case schema.ConnectorDefault:
		return path + ".default_connector"
	case schema.ConnectorFault:
		return path + ".fault_connector"
	}
	if edge.Label == "" {
		return path + ".connector"
	}
	return fmt.Sprintf("%s.connector[%s]", path, edge.Label)
}
