package schema

import (
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// ResolverDirectiveName marks resolver-backed fields in SDL.
const ResolverDirectiveName = "resolver"

// resolverDirectiveSDL is loaded next to user sources unless they declare
// the directive themselves.
const resolverDirectiveSDL = `"""
Marks a field whose value is produced by a registered resolver.
"""
directive @resolver on FIELD_DEFINITION`

// BuildFromSDL parses and validates SDL and returns the corresponding Schema.
func BuildFromSDL(sdl string) (*Schema, error) {
	return BuildFromSources(&ast.Source{Name: "schema.graphql", Input: sdl})
}

// BuildFromSources loads several SDL sources into one executable schema.
// Extensions are merged into their base definitions by gqlparser.
func BuildFromSources(sources ...*ast.Source) (*Schema, error) {
	declared := false
	for _, src := range sources {
		if strings.Contains(src.Input, "directive @"+ResolverDirectiveName) {
			declared = true
			break
		}
	}
	if !declared {
		sources = append([]*ast.Source{{Name: "graphrt.graphql", Input: resolverDirectiveSDL, BuiltIn: true}}, sources...)
	}
	doc, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, err
	}
	return BuildFromAST(doc), nil
}

// BuildFromAST converts a validated gqlparser schema.
func BuildFromAST(doc *ast.Schema) *Schema {
	s := &Schema{
		Types:       make(map[string]*Type, len(doc.Types)),
		Directives:  make(map[string]*Directive, len(doc.Directives)),
		Description: doc.Description,
	}
	if doc.Query != nil {
		s.QueryType = doc.Query.Name
	}
	if doc.Mutation != nil {
		s.MutationType = doc.Mutation.Name
	}
	if doc.Subscription != nil {
		s.SubscriptionType = doc.Subscription.Name
	}

	for name, def := range doc.Types {
		// Introspection types are added by the introspection package.
		if def.BuiltIn && def.Kind != ast.Scalar {
			continue
		}
		t := buildType(doc, def)
		t.BuiltIn = def.BuiltIn
		s.Types[name] = t
	}

	for name, dir := range doc.Directives {
		d := buildDirective(dir)
		d.BuiltIn = name == ResolverDirectiveName || dir.Position == nil || dir.Position.Src == nil || dir.Position.Src.BuiltIn
		s.Directives[name] = d
	}
	return s
}

func buildType(doc *ast.Schema, def *ast.Definition) *Type {
	t := &Type{Name: def.Name, Description: def.Description}
	switch def.Kind {
	case ast.Object:
		t.Kind = TypeKindObject
	case ast.Interface:
		t.Kind = TypeKindInterface
	case ast.Union:
		t.Kind = TypeKindUnion
	case ast.Enum:
		t.Kind = TypeKindEnum
	case ast.InputObject:
		t.Kind = TypeKindInputObject
		t.OneOf = def.Directives.ForName("oneOf") != nil
	default:
		t.Kind = TypeKindScalar
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				url := arg.Value.Raw
				t.SpecifiedByURL = &url
			}
		}
	}

	switch t.Kind {
	case TypeKindObject, TypeKindInterface:
		t.Interfaces = append(t.Interfaces, def.Interfaces...)
		for _, fd := range def.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			t.Fields = append(t.Fields, buildField(fd))
		}
	case TypeKindInputObject:
		for _, fd := range def.Fields {
			t.InputFields = append(t.InputFields, buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives))
		}
	case TypeKindEnum:
		for _, ev := range def.EnumValues {
			v := &EnumValue{Name: ev.Name, Description: ev.Description}
			v.IsDeprecated, v.DeprecationReason = deprecation(ev.Directives)
			t.EnumValues = append(t.EnumValues, v)
		}
	}

	if t.Kind == TypeKindUnion || t.Kind == TypeKindInterface {
		for _, p := range doc.PossibleTypes[def.Name] {
			t.PossibleTypes = append(t.PossibleTypes, p.Name)
		}
		sort.Strings(t.PossibleTypes)
	}
	return t
}

func buildField(fd *ast.FieldDefinition) *Field {
	f := &Field{
		Name:        fd.Name,
		Description: fd.Description,
		Type:        buildTypeRef(fd.Type),
		Resolved:    fd.Directives.ForName(ResolverDirectiveName) != nil,
	}
	f.IsDeprecated, f.DeprecationReason = deprecation(fd.Directives)
	for _, arg := range fd.Arguments {
		f.Arguments = append(f.Arguments, buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
	}
	return f
}

func buildInputValue(name, description string, typ *ast.Type, def *ast.Value, directives ast.DirectiveList) *InputValue {
	in := &InputValue{Name: name, Description: description, Type: buildTypeRef(typ)}
	if def != nil {
		in.DefaultValue = defaultValue(def)
	}
	in.IsDeprecated, in.DeprecationReason = deprecation(directives)
	return in
}

func defaultValue(v *ast.Value) any {
	switch v.Kind {
	case ast.EnumValue:
		return EnumLiteral(v.Raw)
	case ast.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = defaultValue(c.Value)
		}
		return out
	case ast.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			out[c.Name] = defaultValue(c.Value)
		}
		return out
	}
	val, err := v.Value(nil)
	if err != nil {
		return nil
	}
	if i, ok := val.(int64); ok {
		return int(i)
	}
	return val
}

func buildTypeRef(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}

func buildDirective(dir *ast.DirectiveDefinition) *Directive {
	d := &Directive{Name: dir.Name, Description: dir.Description, IsRepeatable: dir.IsRepeatable}
	for _, loc := range dir.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range dir.Arguments {
		d.Arguments = append(d.Arguments, buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
	}
	return d
}

func deprecation(directives ast.DirectiveList) (bool, string) {
	d := directives.ForName("deprecated")
	if d == nil {
		return false, ""
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return true, arg.Value.Raw
	}
	return true, ""
}
