// Package flowjson reads and writes the JSON form of a flow. Documents are
// validated against an embedded JSON Schema (Draft 2020-12) before they are
// decoded.
package flowjson

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/flowscript/pkg/schema"
)

const schemaURL = "https://flowscript.dev/schemas/flow.json"

//go:embed flow.schema.json
var flowSchemaJSON string

var (
	compileOnce sync.Once
	flowSchema  *jsonschema.Schema
	compileErr  error
)

// compiledSchema compiles the embedded flow schema once per process.
func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.AssertFormat()

		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(flowSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal flow schema: %w", err)
			return
		}
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add flow schema resource: %w", err)
			return
		}
		flowSchema, compileErr = c.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile flow schema: %w", compileErr)
		}
	})
	return flowSchema, compileErr
}

// Parse validates and decodes a JSON flow document.
func Parse(r io.Reader) (*schema.Flow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeParse, "read flow document").WithCause(err)
	}
	return ParseBytes(data)
}

// ParseFile reads, validates and decodes the JSON flow at path.
func ParseFile(path string) (*schema.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeParse, "read %s", path).WithCause(err)
	}
	return ParseBytes(data)
}

// ParseBytes validates and decodes a JSON flow document held in memory.
func ParseBytes(data []byte) (*schema.Flow, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var flow schema.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, schema.NewError(schema.ErrCodeParse, "decode flow document").WithCause(err)
	}
	normalize(&flow)
	return &flow, nil
}

// Validate checks a JSON document against the flow schema. Violations are
// returned as a VALIDATION_ERROR with a "violations" detail list.
func Validate(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "flow schema unavailable").WithCause(err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return schema.NewError(schema.ErrCodeParse, "invalid JSON").WithCause(err)
	}
	if err := sch.Validate(doc); err != nil {
		return toTranspileError(err)
	}
	return nil
}

// Marshal encodes a flow as indented JSON.
func Marshal(flow *schema.Flow) ([]byte, error) {
	if flow == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "flow is nil")
	}
	return json.MarshalIndent(flow, "", "  ")
}

// ToMap converts a flow into its generic JSON value, the form jq and CEL
// programs operate on.
func ToMap(flow *schema.Flow) (map[string]any, error) {
	b, err := json.Marshal(flow)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalize fills connector kinds that the document left implicit.
func normalize(flow *schema.Flow) {
	fix := func(c *schema.Connector, kind schema.ConnectorKind) {
		if c != nil && c.Kind == "" {
			c.Kind = kind
		}
	}
	visit := func(el *schema.Element) {
		if el == nil {
			return
		}
		fix(el.Connector, schema.ConnectorNormal)
		fix(el.Default, schema.ConnectorDefault)
		fix(el.Fault, schema.ConnectorFault)
		if el.Decision != nil {
			for i := range el.Decision.Rules {
				fix(el.Decision.Rules[i].Connector, schema.ConnectorNormal)
			}
		}
		if el.Loop != nil {
			fix(el.Loop.NextValue, schema.ConnectorNormal)
			fix(el.Loop.NoMoreValues, schema.ConnectorNormal)
		}
		if el.Start != nil {
			for i := range el.Start.ScheduledPaths {
				fix(el.Start.ScheduledPaths[i].Connector, schema.ConnectorNormal)
			}
		}
	}
	visit(flow.Start)
	for _, el := range flow.Elements {
		visit(el)
	}
}

// toTranspileError converts a jsonschema.ValidationError into a
// TranspileError listing every leaf violation.
func toTranspileError(err error) *schema.TranspileError {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}
	return schema.NewErrorf(schema.ErrCodeValidation, "flow document has %d schema violations", len(violations)).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf messages
// with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
