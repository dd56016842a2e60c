package executor

import (
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/schema"
)

// collectedField is one response key with every field node merged into it.
type collectedField struct {
	responseName string
	nodes        []*language.Field
}

// selectionSet merges the sub-selections of all nodes.
func (cf collectedField) selectionSet() language.SelectionSet {
	if len(cf.nodes) == 1 {
		return cf.nodes[0].SelectionSet
	}
	var merged language.SelectionSet
	for _, n := range cf.nodes {
		merged = append(merged, n.SelectionSet...)
	}
	return merged
}

type fieldCollector struct {
	sc         *scope
	sch        *schema.Schema
	objectType string
	fields     []collectedField
	index      map[string]int
	visited    map[string]bool
}

// collectFields groups the fields of sel that apply to objectType by response
// name, in query order. Each named fragment is expanded once.
func (st *executionState) collectFields(sc *scope, objectType *schema.Type, sel language.SelectionSet) []collectedField {
	c := &fieldCollector{
		sc:         sc,
		sch:        st.schema,
		objectType: objectType.Name,
		index:      make(map[string]int),
		visited:    make(map[string]bool),
	}
	c.walk(sel)
	return c.fields
}

func (c *fieldCollector) walk(sel language.SelectionSet) {
	for _, s := range sel {
		switch s := s.(type) {
		case *language.Field:
			if included(c.sc, s.Directives) {
				c.add(s)
			}
		case *language.InlineFragment:
			if included(c.sc, s.Directives) && c.sch.Covers(s.TypeCondition, c.objectType) {
				c.walk(s.SelectionSet)
			}
		case *language.FragmentSpread:
			if !included(c.sc, s.Directives) || c.visited[s.Name] {
				continue
			}
			c.visited[s.Name] = true
			frag := c.sc.fragments.ForName(s.Name)
			if frag != nil && c.sch.Covers(frag.TypeCondition, c.objectType) && included(c.sc, frag.Directives) {
				c.walk(frag.SelectionSet)
			}
		}
	}
}

func (c *fieldCollector) add(f *language.Field) {
	key := f.Alias
	if key == "" {
		key = f.Name
	}
	if i, ok := c.index[key]; ok {
		c.fields[i].nodes = append(c.fields[i].nodes, f)
		return
	}
	c.index[key] = len(c.fields)
	c.fields = append(c.fields, collectedField{responseName: key, nodes: []*language.Field{f}})
}

// included applies @skip and @include. A condition that does not evaluate
// to a boolean, such as an unknown variable, keeps the node.
func included(sc *scope, directives language.DirectiveList) bool {
	return !directiveCondition(sc, directives.ForName("skip"), false) &&
		directiveCondition(sc, directives.ForName("include"), true)
}

func directiveCondition(sc *scope, d *language.Directive, fallback bool) bool {
	if d == nil {
		return fallback
	}
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return fallback
	}
	if b, ok := literalValue(arg.Value, sc.variables).(bool); ok {
		return b
	}
	return fallback
}
