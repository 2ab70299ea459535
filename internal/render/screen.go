package render

import (
	"regexp"
	"strings"

	"github.com/rendis/flowscript/pkg/schema"
)

var fieldTypes = map[string]string{
	"Text":          "String",
	"TextArea":      "String",
	"Picklist":      "String",
	"MultiPicklist": "String",
	"Number":        "Decimal",
	"Currency":      "Decimal",
	"Date":          "Date",
	"DateTime":      "DateTime",
	"Boolean":       "Boolean",
	"Email":         "String",
	"Phone":         "String",
	"URL":           "String",
	"Reference":     "Id",
	"RadioButtons":  "String",
	"Checkbox":      "Boolean",
	"LookupFilter":  "Id",
}

// screenSections groups input fields by keywords in their names. Fields
// matching none stay in the unnamed section.
var screenSections = []struct {
	title    string
	keywords []string
}{
	{"Contact Information", []string{"contact", "phone", "email"}},
	{"Account Details", []string{"account", "company", "organization"}},
	{"Address Information", []string{"address", "street", "city", "state", "zip", "country"}},
}

var (
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// renderScreen writes its own heading instead of the shared element header.
func renderScreen(rc *Context, el *schema.Element) error {
	name := el.Name
	if name == "" {
		name = "UnknownScreen"
	}
	if el.Label != "" && el.Label != name {
		rc.Out.Comment("Screen: " + el.Label)
	}
	spec := el.Screen
	if spec == nil {
		spec = &schema.ScreenSpec{}
	}

	writeScreenConstructor(rc, el, name, spec)
	writeParameterBlock(rc, "Screen Inputs (Pre-populated values):", spec.InputParameters, "")
	writeParameterBlock(rc, "Screen Outputs (Data flow to next steps):", spec.OutputParameters, ";")
	writeNavigation(rc, el, spec)
	return nil
}

func writeScreenConstructor(rc *Context, el *schema.Element, name string, spec *schema.ScreenSpec) {
	var display, components, inputs []schema.ScreenField
	for _, f := range spec.Fields {
		switch f.FieldType {
		case "":
			continue
		case "DisplayText":
			display = append(display, f)
		case "ComponentInstance":
			components = append(components, f)
		default:
			inputs = append(inputs, f)
		}
	}
	if len(display)+len(components)+len(inputs) == 0 {
		rc.Out.Writef("Screen %s = new Screen();", name)
		return
	}

	if d := strings.TrimSpace(el.Description); d != "" {
		rc.Out.Comment("Instructions: " + d)
	}
	rc.Out.Writef("Screen %s = new Screen(", name)
	body := rc.Out.Indent()

	for _, f := range display {
		if f.FieldText != "" {
			rc.Out.Comment("Message: " + cleanMessage(f.FieldText))
		}
	}
	if len(display) > 0 && len(components)+len(inputs) > 0 {
		rc.Out.Blank()
	}

	for _, f := range components {
		if f.Name == "" {
			continue
		}
		ext := f.ExtensionName
		if ext == "" {
			ext = "Custom Component"
		}
		rc.Out.Comment(f.Name + " Component (" + ext + ")")
		var params []string
		for _, p := range f.InputParameters {
			if p.Value != nil {
				params = append(params, p.Name+": "+screenValue(p.Value))
			}
		}
		if len(params) > 0 {
			rc.Out.Comment("Parameters: " + strings.Join(params, ", "))
		}
	}
	if len(components) > 0 && len(inputs) > 0 {
		rc.Out.Blank()
	}

	writeInputFields(rc, inputs)

	body.Close()
	rc.Out.Write(");")
	rc.Out.Blank()
}

func writeInputFields(rc *Context, fields []schema.ScreenField) {
	type section struct {
		title  string
		fields []schema.ScreenField
	}
	sections := []*section{{}}
	byTitle := map[string]*section{}
	for _, f := range fields {
		title := sectionOf(f.Name)
		if title == "" {
			sections[0].fields = append(sections[0].fields, f)
			continue
		}
		s, ok := byTitle[title]
		if !ok {
			s = &section{title: title}
			byTitle[title] = s
			sections = append(sections, s)
		}
		s.fields = append(s.fields, f)
	}
	if len(sections[0].fields) == 0 {
		sections = sections[1:]
	}

	for si, s := range sections {
		lastSection := si == len(sections)-1
		if s.title != "" {
			rc.Out.Comment("=== " + s.title + " ===")
		}
		for fi, f := range s.fields {
			writeInputField(rc, f, lastSection && fi == len(s.fields)-1)
		}
		if s.title != "" && !lastSection {
			rc.Out.Blank()
		}
	}
}

func sectionOf(name string) string {
	lower := strings.ToLower(name)
	for _, s := range screenSections {
		for _, kw := range s.keywords {
			if strings.Contains(lower, kw) {
				return s.title
			}
		}
	}
	return ""
}

func writeInputField(rc *Context, f schema.ScreenField, last bool) {
	if f.Name == "" {
		return
	}
	var parts []string
	if f.FieldText != "" {
		parts = append(parts, f.FieldText)
	}
	if info := fieldTypeInfo(f); info != "" {
		parts = append(parts, info)
	}
	if f.IsRequired {
		parts = append(parts, "Required")
	} else {
		parts = append(parts, "Optional")
	}
	if !f.DefaultValue.IsZero() {
		parts = append(parts, "Default: "+screenValue(f.DefaultValue))
	}
	rc.Out.Comment(strings.Join(parts, " - "))

	if f.HelpText != "" {
		rc.Out.Comment("Help: " + f.HelpText)
	}
	if v := validationInfo(f); v != "" {
		rc.Out.Comment("Validation: " + v)
	}

	typ, ok := fieldTypes[f.DataType]
	if !ok {
		typ = "String"
	}
	comma := ","
	if last {
		comma = ""
	}
	note := "User input field"
	switch {
	case f.VisibilityRule != "":
		note = "Visible when: " + f.VisibilityRule
	case f.ResetOnRevisit:
		note = "Conditional field"
	}
	rc.Out.Writef("%s %s%s // %s", typ, f.Name, comma, note)
}

func fieldTypeInfo(f schema.ScreenField) string {
	switch f.FieldType {
	case "RadioButtons":
		return withChoices("Radio", f.ChoiceReferences)
	case "Picklist", "MultiPicklist":
		return withChoices(f.FieldType, f.ChoiceReferences)
	case "Checkbox":
		return "Checkbox"
	}
	switch f.DataType {
	case "":
		return f.FieldType
	case "Email":
		return "Email format required"
	case "Phone":
		return "Phone format"
	case "URL":
		return "URL format"
	default:
		return f.DataType
	}
}

func withChoices(label string, choices []string) string {
	if len(choices) == 0 {
		return label
	}
	quoted := make([]string, len(choices))
	for i, c := range choices {
		quoted[i] = `"` + c + `"`
	}
	return label + ": [" + strings.Join(quoted, ", ") + "]"
}

func validationInfo(f schema.ScreenField) string {
	var parts []string
	if f.Scale != "" {
		parts = append(parts, "Scale: "+f.Scale)
	}
	switch f.DataType {
	case "Text":
		parts = append(parts, "Max length: 255")
	case "TextArea":
		parts = append(parts, "Max length: 32,768")
	}
	if f.ValidationRule != "" {
		parts = append(parts, "Rule: "+f.ValidationRule)
	}
	return strings.Join(parts, ", ")
}

func writeParameterBlock(rc *Context, title string, params []schema.Parameter, suffix string) {
	if len(params) == 0 {
		return
	}
	rc.Out.Comment(title)
	for _, p := range params {
		if p.Name == "" || p.Value == nil {
			continue
		}
		rc.Out.Comment("   " + p.Name + " = " + screenValue(p.Value) + suffix)
	}
	rc.Out.Blank()
}

func writeNavigation(rc *Context, el *schema.Element, spec *schema.ScreenSpec) {
	type hop struct{ action, target string }
	var hops []hop
	if el.Connector != nil {
		hops = append(hops, hop{"Next/Finish", el.Connector.Target})
	}
	if el.Fault != nil {
		hops = append(hops, hop{"On Error", el.Fault.Target})
	}
	if spec.PauseConnector != nil {
		hops = append(hops, hop{"On Pause", spec.PauseConnector.Target})
	}
	if len(hops) == 0 {
		return
	}
	rc.Out.Comment("Navigation:")
	for _, h := range hops {
		suffix := ""
		if rc.Lookup != nil {
			if target, ok := rc.Lookup(h.target); ok {
				suffix = " (" + string(target.Kind) + ")"
			}
		}
		rc.Out.Comment("   " + h.action + " -> " + h.target + suffix)
	}
	rc.Out.Blank()
}

// screenValue renders a value the way screens display it: references in
// braces, strings double-quoted.
func screenValue(v *schema.Value) string {
	if v.IsZero() {
		return "null"
	}
	if v.ElementReference != "" {
		return "{" + v.ElementReference + "}"
	}
	s, _ := formatValue(v, `"`, nil)
	return s
}

// cleanMessage strips markup from display text and shows merge fields as
// {name}.
func cleanMessage(msg string) string {
	msg = htmlTag.ReplaceAllString(msg, "")
	msg = strings.NewReplacer("&quot;", `"`, "&amp;", "&", "&lt;", "<", "&gt;", ">", "&nbsp;", " ").Replace(msg)
	msg = mergeField.ReplaceAllString(msg, "{$1}")
	return strings.TrimSpace(whitespace.ReplaceAllString(msg, " "))
}
