package render

import (
	"strings"

	"github.com/rendis/flowscript/pkg/schema"
)

func renderLookup(rc *Context, el *schema.Element) error {
	spec := el.Lookup
	if spec == nil || spec.Object == "" {
		return schema.MissingField(el.Kind, el.Name, "object")
	}
	if el.Name == "" && spec.OutputReference == "" {
		return schema.MissingField(el.Kind, "", "name")
	}
	Header(rc.Out, el)

	out := LookupOutput(el)
	typ := "List<" + spec.Object + ">"
	if spec.GetFirstRecordOnly {
		typ = spec.Object
	}
	rc.Env.Declare(out, typ)

	fields := spec.QueriedFields
	if len(fields) == 0 {
		fields = []string{"Id"}
	}
	query := []string{
		"SELECT " + strings.Join(fields, ", "),
		"FROM " + spec.Object,
	}
	if where := whereClause(rc, spec.Filters, spec.FilterLogic); where != "" {
		query = append(query, "WHERE "+where)
	}
	if spec.SortField != "" {
		order := "ASC"
		if strings.EqualFold(spec.SortOrder, "desc") {
			order = "DESC"
		}
		query = append(query, "ORDER BY "+spec.SortField+" "+order)
	}
	if spec.GetFirstRecordOnly {
		query = append(query, "LIMIT 1")
	}

	rc.Out.Writef("%s %s = [", typ, out)
	scope := rc.Out.Indent()
	for _, line := range query {
		rc.Out.Write(line)
	}
	scope.Close()
	rc.Out.Write("];")

	for _, oa := range spec.OutputAssignments {
		rc.Out.Writef("%s = %s.%s;", rc.resolve(oa.AssignToReference), out, oa.Field)
	}
	return nil
}

// LookupOutput returns the variable a record lookup stores its result in.
func LookupOutput(el *schema.Element) string {
	if el.Lookup != nil && el.Lookup.OutputReference != "" {
		return el.Lookup.OutputReference
	}
	return el.Name
}

func renderCreate(rc *Context, el *schema.Element) error {
	Header(rc.Out, el)
	spec := el.Create
	if spec == nil {
		spec = &schema.CreateSpec{}
	}
	if spec.InputReference != "" {
		rc.Out.Writef("insert %s;", rc.resolve(spec.InputReference))
		return nil
	}

	obj := spec.Object
	if obj == "" {
		obj = "SObject"
	}
	v := spec.OutputReference
	if v == "" {
		v = "newRecord"
	}
	rc.Env.Declare(v, obj)

	if len(spec.InputAssignments) == 0 {
		rc.Out.Writef("%s %s = new %s();", obj, v, obj)
		rc.Out.Writef("insert %s;", v)
		return nil
	}

	rc.Out.Writef("%s %s = new %s(", obj, v, obj)
	scope := rc.Out.Indent()
	var fields []string
	for _, a := range spec.InputAssignments {
		val, ok := formatValue(a.Value, "'", rc.resolve)
		if a.Field == "" || !ok {
			rc.Out.Comment("ERROR: Invalid field assignment found")
			continue
		}
		fields = append(fields, a.Field+" = "+val)
	}
	for i, f := range fields {
		if i < len(fields)-1 {
			f += ","
		}
		rc.Out.Write(f)
	}
	scope.Close()
	rc.Out.Write(");")
	rc.Out.Writef("insert %s;", v)
	return nil
}

func renderUpdate(rc *Context, el *schema.Element) error {
	Header(rc.Out, el)
	spec := el.Update
	if spec == nil {
		spec = &schema.UpdateSpec{}
	}
	if spec.InputReference != "" {
		rc.Out.Writef("update %s;", rc.resolve(spec.InputReference))
		return nil
	}
	if len(spec.InputAssignments) == 0 {
		rc.Out.Comment("ERROR: No field assignments found in record update")
		return nil
	}
	if where := whereClause(rc, spec.Filters, ""); where != "" {
		target := spec.Object
		if target == "" {
			target = "records"
		}
		rc.Out.Comment("Where " + target + ": " + where)
	}
	for _, a := range spec.InputAssignments {
		val, ok := formatValue(a.Value, "'", rc.resolve)
		if a.Field == "" || !ok {
			rc.Out.Comment("ERROR: Invalid field assignment found")
			continue
		}
		rc.Out.Writef("recordToUpdate.%s = %s;", a.Field, val)
	}
	rc.Out.Write("update recordToUpdate;")
	return nil
}

func renderDelete(rc *Context, el *schema.Element) error {
	spec := el.Delete
	if spec == nil {
		spec = &schema.DeleteSpec{}
	}
	if spec.InputReference == "" && spec.Object == "" {
		return schema.MissingField(el.Kind, el.Name, "object")
	}
	Header(rc.Out, el)
	if spec.InputReference != "" {
		rc.Out.Writef("delete %s;", rc.resolve(spec.InputReference))
		return nil
	}
	query := "SELECT Id FROM " + spec.Object
	if where := whereClause(rc, spec.Filters, ""); where != "" {
		query += " WHERE " + where
	}
	rc.Out.Writef("delete [%s];", query)
	return nil
}

// whereClause renders record filters as a query condition.
func whereClause(rc *Context, filters []schema.Filter, logic string) string {
	var conds []string
	for _, f := range filters {
		if c, ok := filterCondition(rc, f); ok {
			conds = append(conds, c)
		}
	}
	joiner := " AND "
	if strings.EqualFold(logic, "or") {
		joiner = " OR "
	}
	return strings.Join(conds, joiner)
}

func filterCondition(rc *Context, f schema.Filter) (string, bool) {
	if f.Field == "" {
		return "", false
	}
	switch f.Operator {
	case "IsNull":
		if f.Value != nil && f.Value.BooleanValue != nil && !*f.Value.BooleanValue {
			return f.Field + " != null", true
		}
		return f.Field + " = null", true
	case "IsNotNull":
		return f.Field + " != null", true
	}
	v := f.Value
	if v.IsZero() {
		return "", false
	}
	op := f.Operator
	if op == "" {
		op = "EqualTo"
	}
	switch {
	case v.ElementReference != "":
		return f.Field + " " + SOQLOperator(op) + " " + rc.resolve(v.ElementReference), true
	case v.BooleanValue != nil:
		b, _ := formatValue(v, "", nil)
		return f.Field + " " + SOQLOperator(op) + " " + b, true
	case v.NumberValue != nil:
		return f.Field + " " + SOQLOperator(op) + " " + *v.NumberValue, true
	}
	lit, _ := formatValue(v, "", nil)
	switch op {
	case "Contains":
		return f.Field + " LIKE '%" + lit + "%'", true
	case "StartsWith":
		return f.Field + " LIKE '" + lit + "%'", true
	case "EndsWith":
		return f.Field + " LIKE '%" + lit + "'", true
	}
	return f.Field + " " + SOQLOperator(op) + " '" + lit + "'", true
}
