// Package schema holds the executable form of a GraphQL schema loaded from
// SDL, along with the @resolver marking of resolver-backed fields.
package schema

import "slices"

// NodeInterface is the interface name that marks object types as node-capable.
const NodeInterface = "Node"

type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Description      string

	Types      map[string]*Type
	Directives map[string]*Directive
}

// QueryRoot returns the query root type. The mutation and subscription
// roots may be nil.
func (s *Schema) QueryRoot() *Type        { return s.Types[s.QueryType] }
func (s *Schema) MutationRoot() *Type     { return s.Types[s.MutationType] }
func (s *Schema) SubscriptionRoot() *Type { return s.Types[s.SubscriptionType] }

// IsNodeType reports whether name is an object type implementing Node.
func (s *Schema) IsNodeType(name string) bool {
	t, ok := s.Types[name]
	return ok && t.IsNode()
}

// PossibleTypes lists the object types a value of the named type may have:
// the type itself for objects, members of unions and implementors of
// interfaces.
func (s *Schema) PossibleTypes(name string) []string {
	t, ok := s.Types[name]
	switch {
	case !ok:
		return nil
	case t.Kind == TypeKindObject:
		return []string{t.Name}
	case t.Kind == TypeKindUnion, t.Kind == TypeKindInterface:
		return t.PossibleTypes
	}
	return nil
}

// Covers reports whether an object of type objectType matches the type
// condition cond. An empty condition matches everything.
func (s *Schema) Covers(cond, objectType string) bool {
	return cond == "" || cond == objectType || slices.Contains(s.PossibleTypes(cond), objectType)
}
