package introspection

import (
	"maps"

	"github.com/hanpama/graphrt/internal/schema"
)

var (
	schemaField = &schema.Field{
		Name:        "__schema",
		Description: "Access the current type schema of this server.",
		Type:        schema.NonNullType(schema.NamedType("__Schema")),
	}
	typeField = &schema.Field{
		Name:        "__type",
		Description: "Request the type information of a single type.",
		Type:        schema.NamedType("__Type"),
		Arguments: []*schema.InputValue{{
			Name: "name",
			Type: schema.NonNullType(schema.NamedType("String")),
		}},
	}
)

// extend returns a copy of sch that also holds the introspection types. The
// query root is replaced by a copy carrying __schema and __type. Other types
// are shared with sch.
func extend(sch *schema.Schema) *schema.Schema {
	out := *sch
	out.Types = maps.Clone(sch.Types)
	maps.Copy(out.Types, schema.IntrospectionTypes())
	if root := sch.QueryRoot(); root != nil {
		query := *root
		query.Fields = append(append(make([]*schema.Field, 0, len(root.Fields)+2), root.Fields...), schemaField, typeField)
		out.Types[query.Name] = &query
	}
	return &out
}
