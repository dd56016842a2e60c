package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Render prints s as SDL. Types come first, then directives, each sorted by
// name. Built-in scalars and directives are left out.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	w := &sdlWriter{}
	for _, name := range sortedKeys(s.Types) {
		if t := s.Types[name]; !t.BuiltIn && !strings.HasPrefix(name, "__") {
			w.typeDefinition(t)
		}
	}
	for _, name := range sortedKeys(s.Directives) {
		if d := s.Directives[name]; !d.BuiltIn {
			w.directiveDefinition(d)
		}
	}
	return strings.TrimRight(w.String(), "\n") + "\n"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type sdlWriter struct {
	strings.Builder
}

func (w *sdlWriter) print(parts ...string) {
	for _, p := range parts {
		w.WriteString(p)
	}
}

func (w *sdlWriter) description(desc string) {
	if desc != "" {
		w.print(`"""`, "\n", strings.ReplaceAll(desc, `"`, `\"`), "\n", `"""`, "\n")
	}
}

func (w *sdlWriter) deprecated(is bool, reason string) {
	switch {
	case !is:
	case reason == "":
		w.print(" @deprecated")
	default:
		w.print(` @deprecated(reason: "`, reason, `")`)
	}
}

func (w *sdlWriter) typeDefinition(t *Type) {
	w.description(t.Description)
	switch t.Kind {
	case TypeKindScalar:
		w.print("scalar ", t.Name)
		if t.SpecifiedByURL != nil {
			w.print(` @specifiedBy(url: "`, *t.SpecifiedByURL, `")`)
		}
		w.print("\n\n")

	case TypeKindUnion:
		w.print("union ", t.Name, " = ", strings.Join(t.PossibleTypes, " | "), "\n\n")

	case TypeKindEnum:
		w.print("enum ", t.Name, " {\n")
		for _, v := range t.EnumValues {
			w.description(v.Description)
			w.print("  ", v.Name)
			w.deprecated(v.IsDeprecated, v.DeprecationReason)
			w.print("\n")
		}
		w.print("}\n\n")

	case TypeKindInputObject:
		w.print("input ", t.Name)
		if t.OneOf {
			w.print(" @oneOf")
		}
		w.print(" {\n")
		for _, f := range t.InputFields {
			w.description(f.Description)
			w.print("  ")
			w.inputValue(f)
			w.deprecated(f.IsDeprecated, f.DeprecationReason)
			w.print("\n")
		}
		w.print("}\n\n")

	case TypeKindObject, TypeKindInterface:
		keyword := "type "
		if t.Kind == TypeKindInterface {
			keyword = "interface "
		}
		w.print(keyword, t.Name)
		if len(t.Interfaces) > 0 {
			w.print(" implements ", strings.Join(t.Interfaces, " & "))
		}
		w.print(" {\n")
		for _, f := range t.Fields {
			w.description(f.Description)
			w.print("  ", f.Name)
			w.arguments(f.Arguments)
			w.print(": ", f.Type.String())
			if f.Resolved {
				w.print(" @", ResolverDirectiveName)
			}
			w.deprecated(f.IsDeprecated, f.DeprecationReason)
			w.print("\n")
		}
		w.print("}\n\n")
	}
}

func (w *sdlWriter) directiveDefinition(d *Directive) {
	w.description(d.Description)
	w.print("directive @", d.Name)
	w.arguments(d.Arguments)
	if d.IsRepeatable {
		w.print(" repeatable")
	}
	w.print(" on ", strings.Join(d.Locations, " | "), "\n\n")
}

func (w *sdlWriter) arguments(args []*InputValue) {
	if len(args) == 0 {
		return
	}
	w.print("(")
	for i, a := range args {
		if i > 0 {
			w.print(", ")
		}
		w.inputValue(a)
	}
	w.print(")")
}

func (w *sdlWriter) inputValue(v *InputValue) {
	w.print(v.Name, ": ", v.Type.String())
	if v.DefaultValue != nil {
		w.print(" = ", FormatValue(v.DefaultValue))
	}
}

// String prints the reference in SDL notation, such as [ID!]!.
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNamed:
		return t.Named
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	}
	return ""
}

// FormatValue renders v as a GraphQL literal, as used for default values.
// Object keys are sorted. EnumLiteral and other unknown values print bare.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = FormatValue(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		fields := make([]string, 0, len(v))
		for _, k := range sortedKeys(v) {
			fields = append(fields, k+": "+FormatValue(v[k]))
		}
		return "{" + strings.Join(fields, ", ") + "}"
	}
	return fmt.Sprint(v)
}
