// Package dispatch maps coordinates to the resolvers, node loaders and
// checkers that serve them.
//
// A Registry is built once from modules and is read-only afterwards, so it
// may be shared by every request without locking.
package dispatch

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds every binding and checker, indexed by coordinate.
type Registry struct {
	bindings []*Binding
	index    map[Coordinate]int
	checkers map[Coordinate]*CheckerBinding
	modules  []string
}

// DuplicateBindingError lists every coordinate bound more than once.
type DuplicateBindingError struct {
	Duplicates []Duplicate
}

// Duplicate is one collision between two modules.
type Duplicate struct {
	Coordinate Coordinate
	Kind       string
	First      string
	Second     string
}

func (e *DuplicateBindingError) Error() string {
	var b strings.Builder
	b.WriteString("duplicate bindings:")
	for _, d := range e.Duplicates {
		fmt.Fprintf(&b, "\n- %s %s registered by %q and %q", d.Kind, d.Coordinate, d.First, d.Second)
	}
	return b.String()
}

// InvalidBindingError reports a binding that was not built with one of the
// constructors.
type InvalidBindingError struct {
	Coordinate Coordinate
	Module     string
	Reason     string
}

func (e *InvalidBindingError) Error() string {
	return fmt.Sprintf("invalid binding %s in module %q: %s", e.Coordinate, e.Module, e.Reason)
}

// NewRegistry collects the bindings and checkers of modules.
func NewRegistry(modules ...Module) (*Registry, error) {
	r := &Registry{
		index:    make(map[Coordinate]int),
		checkers: make(map[Coordinate]*CheckerBinding),
	}
	var dups []Duplicate
	for _, m := range modules {
		r.modules = append(r.modules, m.Name)
		for i := range m.Bindings {
			b := m.Bindings[i]
			b.Module = m.Name
			if err := validate(&b); err != nil {
				return nil, err
			}
			if at, ok := r.index[b.Coordinate]; ok {
				dups = append(dups, Duplicate{Coordinate: b.Coordinate, Kind: "resolver", First: r.bindings[at].Module, Second: m.Name})
				continue
			}
			r.index[b.Coordinate] = len(r.bindings)
			r.bindings = append(r.bindings, &b)
		}
		for i := range m.Checkers {
			c := m.Checkers[i]
			c.Module = m.Name
			if c.Policy == nil {
				return nil, &InvalidBindingError{Coordinate: c.Coordinate, Module: m.Name, Reason: "checker has no policy"}
			}
			if prev, ok := r.checkers[c.Coordinate]; ok {
				dups = append(dups, Duplicate{Coordinate: c.Coordinate, Kind: "checker", First: prev.Module, Second: m.Name})
				continue
			}
			r.checkers[c.Coordinate] = &c
		}
	}
	if len(dups) > 0 {
		return nil, &DuplicateBindingError{Duplicates: dups}
	}
	return r, nil
}

func validate(b *Binding) error {
	if b.Coordinate.TypeName == "" {
		return &InvalidBindingError{Coordinate: b.Coordinate, Module: b.Module, Reason: "missing type name"}
	}
	if b.Shape.IsNode() != b.Coordinate.IsType() {
		return &InvalidBindingError{Coordinate: b.Coordinate, Module: b.Module, Reason: fmt.Sprintf("%s shape does not match coordinate", b.Shape)}
	}
	if !b.hasFunc() {
		return &InvalidBindingError{Coordinate: b.Coordinate, Module: b.Module, Reason: "no resolver function"}
	}
	if b.Requires != nil && b.Shape.IsNode() {
		return &InvalidBindingError{Coordinate: b.Coordinate, Module: b.Module, Reason: "node loaders cannot declare required selections"}
	}
	return nil
}

// ResolverFor returns the field binding for c, or nil.
func (r *Registry) ResolverFor(c Coordinate) *Binding {
	if c.IsType() {
		return nil
	}
	return r.lookup(c)
}

// NodeResolverFor returns the node binding for typeName, or nil.
func (r *Registry) NodeResolverFor(typeName string) *Binding {
	return r.lookup(TypeCoordinate(typeName))
}

func (r *Registry) lookup(c Coordinate) *Binding {
	if i, ok := r.index[c]; ok {
		return r.bindings[i]
	}
	return nil
}

// CheckerFor returns the checker for a field or type coordinate, or nil.
func (r *Registry) CheckerFor(c Coordinate) *CheckerBinding {
	return r.checkers[c]
}

// Bindings returns every binding in registration order. Callers must not
// modify the result.
func (r *Registry) Bindings() []*Binding { return r.bindings }

// Checkers returns every checker sorted by coordinate.
func (r *Registry) Checkers() []*CheckerBinding {
	out := make([]*CheckerBinding, 0, len(r.checkers))
	for _, c := range r.checkers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Coordinate.String() < out[j].Coordinate.String() })
	return out
}

// Index returns the stable position of c in Bindings, or -1.
func (r *Registry) Index(c Coordinate) int {
	if i, ok := r.index[c]; ok {
		return i
	}
	return -1
}

// Len returns the number of bindings.
func (r *Registry) Len() int { return len(r.bindings) }

// Modules returns the registered module names in order.
func (r *Registry) Modules() []string { return r.modules }
