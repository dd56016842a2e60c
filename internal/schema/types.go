package schema

import "slices"

type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// Type is a named type. Which of the member slices are populated depends on
// Kind.
type Type struct {
	Name        string
	Kind        TypeKind
	Description string

	Fields        []*Field
	Interfaces    []string
	PossibleTypes []string // sorted
	EnumValues    []*EnumValue
	InputFields   []*InputValue

	SpecifiedByURL *string
	OneOf          bool
	// BuiltIn marks the predefined scalars. They are not printed as SDL.
	BuiltIn bool
}

func (t *Type) Field(name string) *Field {
	i := slices.IndexFunc(t.Fields, func(f *Field) bool { return f.Name == name })
	if i < 0 {
		return nil
	}
	return t.Fields[i]
}

func (t *Type) IsNode() bool {
	return t.Kind == TypeKindObject && slices.Contains(t.Interfaces, NodeInterface)
}

// IsComposite reports whether values of t take a selection set.
func (t *Type) IsComposite() bool {
	switch t.Kind {
	case TypeKindObject, TypeKindInterface, TypeKindUnion:
		return true
	}
	return false
}

type Field struct {
	Name        string
	Description string
	Type        *TypeRef
	Arguments   []*InputValue
	// Resolved marks fields declared with @resolver. Each needs a binding.
	Resolved bool

	IsDeprecated      bool
	DeprecationReason string
}

func (f *Field) Argument(name string) *InputValue {
	i := slices.IndexFunc(f.Arguments, func(a *InputValue) bool { return a.Name == name })
	if i < 0 {
		return nil
	}
	return f.Arguments[i]
}

// InputValue is an argument, an input object field or a directive argument.
type InputValue struct {
	Name         string
	Description  string
	Type         *TypeRef
	DefaultValue any

	IsDeprecated      bool
	DeprecationReason string
}

type EnumValue struct {
	Name        string
	Description string

	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
	// BuiltIn marks directives the server predefines, such as @skip and
	// @resolver.
	BuiltIn bool
}

// EnumLiteral is an enum value used as a default value. It prints unquoted.
type EnumLiteral string

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// TypeRef is a possibly wrapped reference to a named type. OfType is set
// for list and non-null wrappers, Named for the innermost reference.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef
	Named  string
}

func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }

// IsNonNull is safe on a nil reference.
func (t *TypeRef) IsNonNull() bool { return t != nil && t.Kind == TypeRefKindNonNull }

// IsList reports whether t is a list, possibly behind one non-null wrapper.
func (t *TypeRef) IsList() bool {
	if t.IsNonNull() {
		t = t.OfType
	}
	return t != nil && t.Kind == TypeRefKindList
}

// Unwrap strips one list or non-null wrapper. Named references return
// themselves.
func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNamed {
		return t
	}
	return t.OfType
}

// GetNamedType returns the innermost type name.
func (t *TypeRef) GetNamedType() string {
	for ; t != nil; t = t.OfType {
		if t.Kind == TypeRefKindNamed {
			return t.Named
		}
	}
	return ""
}
