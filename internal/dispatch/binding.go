package dispatch

import (
	"context"

	"github.com/hanpama/graphrt/internal/policy"
)

// Shape tells the executor how a binding is invoked.
type Shape uint8

const (
	// ShapeField is called once per field instance.
	ShapeField Shape = iota + 1
	// ShapeBatchField is called once per wave with every pending instance.
	ShapeBatchField
	// ShapeNode loads one node by global ID.
	ShapeNode
	// ShapeBatchNode loads every node of a type requested in a wave.
	ShapeBatchNode
)

func (s Shape) String() string {
	switch s {
	case ShapeField:
		return "field"
	case ShapeBatchField:
		return "batch field"
	case ShapeNode:
		return "node"
	case ShapeBatchNode:
		return "batch node"
	}
	return "invalid"
}

// IsBatch reports whether calls are coalesced per wave.
func (s Shape) IsBatch() bool { return s == ShapeBatchField || s == ShapeBatchNode }

// IsNode reports whether the shape resolves nodes by ID.
func (s Shape) IsNode() bool { return s == ShapeNode || s == ShapeBatchNode }

type (
	FieldFunc      func(ctx context.Context, fc *FieldContext) (any, error)
	BatchFieldFunc func(ctx context.Context, fcs []*FieldContext) ([]FieldValue, error)
	NodeFunc       func(ctx context.Context, nc *NodeContext) (any, error)
	BatchNodeFunc  func(ctx context.Context, ncs []*NodeContext) ([]FieldValue, error)
)

// Binding attaches one resolver function to a coordinate. Exactly one of the
// function fields is set, matching Shape; use the constructors.
type Binding struct {
	Coordinate Coordinate
	Shape      Shape
	Requires   *RequiredSelection
	// Module is the name of the module that registered the binding.
	Module string

	field      FieldFunc
	batchField BatchFieldFunc
	node       NodeFunc
	batchNode  BatchNodeFunc
}

// Option configures a field binding.
type Option func(*Binding)

// Field binds an unbatched resolver to typeName.fieldName.
func Field(typeName, fieldName string, fn FieldFunc, opts ...Option) Binding {
	b := Binding{Coordinate: FieldCoordinate(typeName, fieldName), Shape: ShapeField, field: fn}
	return b.apply(opts)
}

// BatchField binds a batched resolver to typeName.fieldName.
func BatchField(typeName, fieldName string, fn BatchFieldFunc, opts ...Option) Binding {
	b := Binding{Coordinate: FieldCoordinate(typeName, fieldName), Shape: ShapeBatchField, batchField: fn}
	return b.apply(opts)
}

// Node binds an unbatched node loader to typeName.
func Node(typeName string, fn NodeFunc) Binding {
	return Binding{Coordinate: TypeCoordinate(typeName), Shape: ShapeNode, node: fn}
}

// BatchNode binds a batched node loader to typeName.
func BatchNode(typeName string, fn BatchNodeFunc) Binding {
	return Binding{Coordinate: TypeCoordinate(typeName), Shape: ShapeBatchNode, batchNode: fn}
}

func (b Binding) apply(opts []Option) Binding {
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *Binding) requirement() *RequiredSelection {
	if b.Requires == nil {
		b.Requires = &RequiredSelection{}
	}
	return b.Requires
}

// Requires declares fields the resolver needs from its own object.
func Requires(fragment string) Option {
	return func(b *Binding) { b.requirement().Object = fragment }
}

// RequiresQuery declares fields the resolver needs from the query root.
func RequiresQuery(fragment string) Option {
	return func(b *Binding) { b.requirement().Query = fragment }
}

// WithVariable binds a variable used by the required fragments.
func WithVariable(name string, source VariableSource) Option {
	return func(b *Binding) {
		r := b.requirement()
		r.Variables = append(r.Variables, VariableBinding{Name: name, Source: source})
	}
}

// Call invokes an unbatched field resolver.
func (b *Binding) Call(ctx context.Context, fc *FieldContext) (any, error) {
	return b.field(ctx, fc)
}

// CallBatch invokes a batched field resolver.
func (b *Binding) CallBatch(ctx context.Context, fcs []*FieldContext) ([]FieldValue, error) {
	return b.batchField(ctx, fcs)
}

// Load invokes an unbatched node loader.
func (b *Binding) Load(ctx context.Context, nc *NodeContext) (any, error) {
	return b.node(ctx, nc)
}

// LoadBatch invokes a batched node loader.
func (b *Binding) LoadBatch(ctx context.Context, ncs []*NodeContext) ([]FieldValue, error) {
	return b.batchNode(ctx, ncs)
}

func (b *Binding) hasFunc() bool {
	switch b.Shape {
	case ShapeField:
		return b.field != nil
	case ShapeBatchField:
		return b.batchField != nil
	case ShapeNode:
		return b.node != nil
	case ShapeBatchNode:
		return b.batchNode != nil
	}
	return false
}

// RequiredSelection declares data a resolver needs before it runs. Object is
// fragment text against the binding's own type and Query is fragment text
// against the query root. Either may be a bare selection ("id name") or a
// full fragment definition.
type RequiredSelection struct {
	Object    string
	Query     string
	Variables []VariableBinding
}

// VariableBinding supplies the value of one variable used by the fragments.
type VariableBinding struct {
	Name   string
	Source VariableSource
}

// ProviderFunc computes a variable value at run time.
type ProviderFunc func(ctx context.Context, vc *VariableContext) (any, error)

// VariableSource is either an argument of the field or a provider.
type VariableSource struct {
	Argument string
	Provider ProviderFunc
}

// FromArgument draws the variable from the named field argument.
func FromArgument(name string) VariableSource { return VariableSource{Argument: name} }

// FromProvider computes the variable with fn.
func FromProvider(fn ProviderFunc) VariableSource { return VariableSource{Provider: fn} }

// CheckerBinding gates a field or a type with a policy.
type CheckerBinding struct {
	Coordinate Coordinate
	Policy     policy.Rule
	Module     string
}

// Check binds rules to a field coordinate.
func Check(typeName, fieldName string, rules ...policy.Rule) CheckerBinding {
	return CheckerBinding{Coordinate: FieldCoordinate(typeName, fieldName), Policy: policy.Chain(rules...)}
}

// CheckType binds rules to a type coordinate.
func CheckType(typeName string, rules ...policy.Rule) CheckerBinding {
	return CheckerBinding{Coordinate: TypeCoordinate(typeName), Policy: policy.Chain(rules...)}
}

// Module groups the bindings contributed by one unit of business logic.
type Module struct {
	Name     string
	Bindings []Binding
	Checkers []CheckerBinding
}
