// Package introspection answers __schema and __type by wrapping an
// executor.Runtime. The wrapped runtime serves every other field.
package introspection

import (
	"context"
	"slices"
	"strings"

	"github.com/hanpama/graphrt/internal/executor"
	"github.com/hanpama/graphrt/internal/schema"
)

// Wrapper holds the introspection-aware runtime and the schema extended
// with the introspection types. Pass both to executor.NewExecutor.
type Wrapper struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap extends sch with introspection types and the __schema and __type
// root fields. sch itself is not modified.
func Wrap(base executor.Runtime, sch *schema.Schema) *Wrapper {
	extended := extend(sch)
	return &Wrapper{
		Runtime: &runtime{Runtime: base, schema: extended},
		Schema:  extended,
	}
}

type runtime struct {
	executor.Runtime
	schema *schema.Schema
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if v, ok := r.describe(source, field, args); ok {
		return v, nil
	}
	if objectType == r.schema.QueryType {
		switch field {
		case schemaField.Name:
			return r.schema, nil
		case typeField.Name:
			name, _ := args["name"].(string)
			if t, ok := r.schema.Types[name]; ok {
				return t, nil
			}
			return nil, nil
		}
	}
	return r.Runtime.ResolveSync(ctx, objectType, field, source, args)
}

// describe answers a field of an introspection object. Sources are the
// schema package's own values.
func (r *runtime) describe(source any, field string, args map[string]any) (any, bool) {
	switch src := source.(type) {
	case *schema.Schema:
		return describeSchema(src, field)
	case *schema.Type:
		return r.describeType(src, field, args)
	case *schema.TypeRef:
		if src.Kind == schema.TypeRefKindNamed {
			return r.describeType(r.schema.Types[src.Named], field, args)
		}
		switch field {
		case "kind":
			return string(src.Kind), true
		case "ofType":
			return src.OfType, true
		}
		return nil, true
	case *schema.Field:
		return describeMember(field, src.Name, src.Description, src.IsDeprecated, src.DeprecationReason, map[string]func() any{
			"args": func() any { return visible(src.Arguments, args, inputDeprecated) },
			"type": func() any { return src.Type },
		})
	case *schema.InputValue:
		return describeMember(field, src.Name, src.Description, src.IsDeprecated, src.DeprecationReason, map[string]func() any{
			"type":         func() any { return src.Type },
			"defaultValue": func() any { return defaultLiteral(src) },
		})
	case *schema.EnumValue:
		return describeMember(field, src.Name, src.Description, src.IsDeprecated, src.DeprecationReason, nil)
	case *schema.Directive:
		switch field {
		case "name":
			return src.Name, true
		case "description":
			return src.Description, true
		case "isRepeatable":
			return src.IsRepeatable, true
		case "locations":
			return src.Locations, true
		case "args":
			return visible(src.Arguments, args, inputDeprecated), true
		}
	}
	return nil, false
}

func describeSchema(sch *schema.Schema, field string) (any, bool) {
	switch field {
	case "types":
		types := make([]*schema.Type, 0, len(sch.Types))
		for _, name := range sortedNames(sch.Types) {
			types = append(types, sch.Types[name])
		}
		return types, true
	case "directives":
		dirs := make([]*schema.Directive, 0, len(sch.Directives))
		for _, name := range sortedNames(sch.Directives) {
			// @resolver is a server-side marker.
			if name != schema.ResolverDirectiveName {
				dirs = append(dirs, sch.Directives[name])
			}
		}
		return dirs, true
	case "queryType":
		return sch.QueryRoot(), true
	case "mutationType":
		return sch.MutationRoot(), true
	case "subscriptionType":
		return sch.SubscriptionRoot(), true
	case "description":
		if sch.Description == "" {
			return nil, true
		}
		return sch.Description, true
	}
	return nil, false
}

// describeType answers __Type fields. Members come in declaration order and
// the lists that do not apply to t's kind are null.
func (r *runtime) describeType(t *schema.Type, field string, args map[string]any) (any, bool) {
	if t == nil {
		return nil, true
	}
	hasFields := t.Kind == schema.TypeKindObject || t.Kind == schema.TypeKindInterface
	abstract := t.Kind == schema.TypeKindInterface || t.Kind == schema.TypeKindUnion
	switch field {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return t.Description, true
	case "specifiedByURL":
		return t.SpecifiedByURL, true
	case "ofType":
		return nil, true
	case "fields":
		if !hasFields {
			return nil, true
		}
		fields := slices.DeleteFunc(slices.Clone(t.Fields), func(f *schema.Field) bool { return strings.HasPrefix(f.Name, "__") })
		return visible(fields, args, func(f *schema.Field) bool { return f.IsDeprecated }), true
	case "interfaces":
		if !hasFields {
			return nil, true
		}
		return r.lookup(t.Interfaces), true
	case "possibleTypes":
		if !abstract {
			return nil, true
		}
		return r.lookup(t.PossibleTypes), true
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, true
		}
		return visible(t.EnumValues, args, func(v *schema.EnumValue) bool { return v.IsDeprecated }), true
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return visible(t.InputFields, args, inputDeprecated), true
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return t.OneOf, true
	}
	return nil, false
}

func (r *runtime) lookup(names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t, ok := r.schema.Types[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// describeMember answers the fields shared by __Field, __InputValue and
// __EnumValue. extra holds the remaining ones.
func describeMember(field, name, description string, deprecated bool, reason string, extra map[string]func() any) (any, bool) {
	switch field {
	case "name":
		return name, true
	case "description":
		return description, true
	case "isDeprecated":
		return deprecated, true
	case "deprecationReason":
		if !deprecated {
			return nil, true
		}
		return &reason, true
	}
	if fn, ok := extra[field]; ok {
		return fn(), true
	}
	return nil, false
}

// visible drops deprecated items unless includeDeprecated is set. The
// result is never nil.
func visible[T any](items []T, args map[string]any, deprecated func(T) bool) []T {
	if include, _ := args["includeDeprecated"].(bool); include {
		return append([]T{}, items...)
	}
	out := []T{}
	for _, it := range items {
		if !deprecated(it) {
			out = append(out, it)
		}
	}
	return out
}

func inputDeprecated(v *schema.InputValue) bool { return v.IsDeprecated }

func defaultLiteral(v *schema.InputValue) *string {
	if v.DefaultValue == nil {
		return nil
	}
	s := schema.FormatValue(v.DefaultValue)
	return &s
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
