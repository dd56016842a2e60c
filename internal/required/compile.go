// Package required compiles the required selections declared by resolver
// bindings and checks that they never depend on themselves.
//
// A binding A depends on binding B when A's object or query fragment
// selects the field bound by B, directly or through nested selections. For
// fields selected on an interface or union, every possible object type is
// considered.
package required

import (
	"fmt"
	"sort"

	"github.com/hanpama/graphrt/internal/dispatch"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/schema"
	"github.com/hanpama/graphrt/internal/selection"
)

// Plan is the compiled form of every required selection. It is immutable.
type Plan struct {
	registry     *dispatch.Registry
	requirements map[dispatch.Coordinate]*Requirement
	graph        *graph
}

// Compile parses and validates every required selection in reg and rejects
// dependency cycles. Declaration errors are joined; a *CycleError is only
// reported once every declaration is valid.
func Compile(sch *schema.Schema, reg *dispatch.Registry, cache *language.DocumentCache) (*Plan, error) {
	p := &Plan{
		registry:     reg,
		requirements: make(map[dispatch.Coordinate]*Requirement),
		graph:        newGraph(reg.Len()),
	}
	c := &compiler{schema: sch, registry: reg, cache: cache}
	var errs []error
	for _, b := range reg.Bindings() {
		if b.Requires == nil {
			continue
		}
		req, err := c.compile(b)
		if err != nil {
			errs = append(errs, err...)
			continue
		}
		p.requirements[b.Coordinate] = req
		from := reg.Index(b.Coordinate)
		for _, set := range []*selection.Set{req.objectSet, req.querySet} {
			c.edges(set, func(to int) { p.graph.addEdge(from, to) })
		}
	}
	if len(errs) > 0 {
		return nil, joinErrors(errs)
	}
	p.graph.sortEdges()
	if cycle := p.graph.findCycle(); cycle != nil {
		coords := make([]dispatch.Coordinate, len(cycle))
		for i, n := range cycle {
			coords[i] = reg.Bindings()[n].Coordinate
		}
		return nil, &CycleError{Cycle: coords}
	}
	return p, nil
}

// For returns the requirement of c, or nil when c declares none.
func (p *Plan) For(c dispatch.Coordinate) *Requirement {
	return p.requirements[c]
}

// Len returns the number of bindings with a requirement.
func (p *Plan) Len() int { return len(p.requirements) }

// Dependencies returns the coordinates c directly depends on, sorted.
func (p *Plan) Dependencies(c dispatch.Coordinate) []dispatch.Coordinate {
	i := p.registry.Index(c)
	if i < 0 {
		return nil
	}
	out := make([]dispatch.Coordinate, 0, len(p.graph.edges[i]))
	for _, to := range p.graph.edges[i] {
		out = append(out, p.registry.Bindings()[to].Coordinate)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].String() < out[b].String() })
	return out
}

// Order returns every bound coordinate so that dependencies come first.
func (p *Plan) Order() []dispatch.Coordinate {
	nodes := p.graph.order()
	out := make([]dispatch.Coordinate, len(nodes))
	for i, n := range nodes {
		out[i] = p.registry.Bindings()[n].Coordinate
	}
	return out
}

type compiler struct {
	schema   *schema.Schema
	registry *dispatch.Registry
	cache    *language.DocumentCache
}

func (c *compiler) compile(b *dispatch.Binding) (*Requirement, []error) {
	coord := b.Coordinate
	decl := func(part, format string, args ...any) error {
		return &DeclarationError{Coordinate: coord, Part: part, Reason: fmt.Sprintf(format, args...)}
	}
	owner := c.schema.Types[coord.TypeName]
	if owner == nil || owner.Field(coord.FieldName) == nil {
		return nil, []error{decl("object", "field is not defined in the schema")}
	}
	field := owner.Field(coord.FieldName)

	req := &Requirement{Coordinate: coord, Variables: b.Requires.Variables}
	var errs []error
	used := map[string]bool{}

	if b.Requires.Object != "" {
		frag, set, err := c.fragment(coord.TypeName, b.Requires.Object)
		if err != nil {
			errs = append(errs, decl("object", "%v", err))
		} else {
			req.Object, req.objectSet = frag, set
			collectVariables(frag, used)
		}
	}
	if b.Requires.Query != "" {
		root := c.schema.QueryType
		if root == "" {
			errs = append(errs, decl("query", "schema has no query type"))
		} else if frag, set, err := c.fragment(root, b.Requires.Query); err != nil {
			errs = append(errs, decl("query", "%v", err))
		} else {
			req.Query, req.querySet = frag, set
			collectVariables(frag, used)
		}
	}

	bound := map[string]bool{}
	for _, v := range b.Requires.Variables {
		switch {
		case v.Name == "":
			errs = append(errs, decl("variables", "variable binding without a name"))
		case bound[v.Name]:
			errs = append(errs, decl("variables", "variable $%s bound twice", v.Name))
		case v.Source.Provider == nil && v.Source.Argument == "":
			errs = append(errs, decl("variables", "variable $%s has no source", v.Name))
		case v.Source.Provider == nil && field.Argument(v.Source.Argument) == nil:
			errs = append(errs, decl("variables", "variable $%s reads unknown argument %q", v.Name, v.Source.Argument))
		}
		bound[v.Name] = true
	}
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !bound[name] {
			errs = append(errs, decl("variables", "variable $%s is not bound", name))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return req, nil
}

func (c *compiler) fragment(typeName, text string) (*language.Fragment, *selection.Set, error) {
	frag, err := c.cache.Fragment(typeName, text)
	if err != nil {
		return nil, nil, err
	}
	if cond := frag.Main.TypeCondition; !c.schema.Covers(cond, typeName) {
		return nil, nil, fmt.Errorf("fragment on %s does not apply to %s", cond, typeName)
	}
	set, err := selection.FromFragment(c.schema, frag)
	if err != nil {
		return nil, nil, err
	}
	return frag, set.NarrowTo(typeName), nil
}

// edges reports the index of every binding selected by set, recursively.
func (c *compiler) edges(set *selection.Set, add func(int)) {
	set.Each(func(typeName, field string, child *selection.Set) {
		for _, concrete := range c.schema.PossibleTypes(typeName) {
			if i := c.registry.Index(dispatch.FieldCoordinate(concrete, field)); i >= 0 {
				add(i)
			}
		}
		c.edges(child, add)
	})
}

func collectVariables(frag *language.Fragment, used map[string]bool) {
	for _, def := range frag.Document.Fragments {
		walkSelection(def.SelectionSet, used)
		walkDirectives(def.Directives, used)
	}
}

func walkSelection(sel language.SelectionSet, used map[string]bool) {
	for _, node := range sel {
		switch n := node.(type) {
		case *language.Field:
			for _, arg := range n.Arguments {
				walkValue(arg.Value, used)
			}
			walkDirectives(n.Directives, used)
			walkSelection(n.SelectionSet, used)
		case *language.InlineFragment:
			walkDirectives(n.Directives, used)
			walkSelection(n.SelectionSet, used)
		case *language.FragmentSpread:
			walkDirectives(n.Directives, used)
		}
	}
}

func walkDirectives(dirs language.DirectiveList, used map[string]bool) {
	for _, d := range dirs {
		for _, arg := range d.Arguments {
			walkValue(arg.Value, used)
		}
	}
}

func walkValue(v *language.Value, used map[string]bool) {
	if v == nil {
		return
	}
	if v.Kind == language.Variable {
		used[v.Raw] = true
		return
	}
	for _, child := range v.Children {
		walkValue(child.Value, used)
	}
}
