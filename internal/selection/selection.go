// Package selection describes which fields of a type were requested,
// recursively, as an immutable value. Sets are built from incoming queries
// and from fragment text declared by resolvers.
package selection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hanpama/graphrt/internal/schema"
)

// Set is an immutable, type-indexed selection. The zero value and nil are
// both valid empty sets.
type Set struct {
	typeName string
	schema   *schema.Schema
	branches []*branch
}

// branch groups the fields requested under one type condition. An empty
// condition means the set's own type.
type branch struct {
	condition string
	order     []string
	children  map[string]*Set
}

// Empty returns the empty selection for typeName.
func Empty(sch *schema.Schema, typeName string) *Set {
	return &Set{typeName: typeName, schema: sch}
}

// TypeName returns the type the set was built against.
func (s *Set) TypeName() string {
	if s == nil {
		return ""
	}
	return s.typeName
}

// IsEmpty reports whether no field is requested on any branch.
func (s *Set) IsEmpty() bool {
	if s == nil {
		return true
	}
	for _, b := range s.branches {
		if len(b.order) > 0 {
			return false
		}
	}
	return true
}

// Contains reports whether field is requested under any type condition.
func (s *Set) Contains(field string) bool {
	if s == nil {
		return false
	}
	for _, b := range s.branches {
		if _, ok := b.children[field]; ok {
			return true
		}
	}
	return false
}

// RequestsType reports whether some non-empty branch applies to values of
// the object type typeName.
func (s *Set) RequestsType(typeName string) bool {
	if s == nil {
		return false
	}
	for _, b := range s.branches {
		if len(b.order) == 0 {
			continue
		}
		if s.covers(b.effectiveCondition(s.typeName), typeName) {
			return true
		}
	}
	return false
}

// SelectionSetFor returns the nested selection under field, merged across
// type conditions. Leaf fields and fields not requested yield an empty set.
func (s *Set) SelectionSetFor(field string) *Set {
	if s == nil {
		return nil
	}
	var out *Set
	for _, b := range s.branches {
		child, ok := b.children[field]
		if !ok {
			continue
		}
		if out == nil {
			out = child
			continue
		}
		out = merge(out, child)
	}
	if out == nil {
		return Empty(s.schema, s.fieldType(field))
	}
	return out
}

// NarrowTo keeps only the branches that apply to the object type typeName
// and folds them into one unconditional branch.
func (s *Set) NarrowTo(typeName string) *Set {
	if s == nil {
		return nil
	}
	out := &Set{typeName: typeName, schema: s.schema}
	nb := &branch{children: map[string]*Set{}}
	for _, b := range s.branches {
		if !s.covers(b.effectiveCondition(s.typeName), typeName) {
			continue
		}
		for _, name := range b.order {
			nb.add(name, b.children[name])
		}
	}
	if len(nb.order) > 0 {
		out.branches = []*branch{nb}
	}
	return out
}

// Fields returns the distinct field names requested, in first-seen order.
func (s *Set) Fields() []string {
	if s == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, b := range s.branches {
		for _, name := range b.order {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// Each visits every requested field in order. typeName is the branch's type
// condition, or the set's own type for unconditional fields.
func (s *Set) Each(fn func(typeName, field string, child *Set)) {
	if s == nil {
		return
	}
	for _, b := range s.branches {
		cond := b.effectiveCondition(s.typeName)
		for _, name := range b.order {
			fn(cond, name, b.children[name])
		}
	}
}

// Equal compares two sets structurally. Field and branch order are ignored.
func (s *Set) Equal(other *Set) bool {
	if s.IsEmpty() || other.IsEmpty() {
		return s.IsEmpty() && other.IsEmpty() && s.TypeName() == other.TypeName()
	}
	if s.typeName != other.typeName {
		return false
	}
	a, b := s.byCondition(), other.byCondition()
	if len(a) != len(b) {
		return false
	}
	for cond, fa := range a {
		fb, ok := b[cond]
		if !ok || len(fa) != len(fb) {
			return false
		}
		for name, ca := range fa {
			cb, ok := fb[name]
			if !ok || !ca.Equal(cb) {
				return false
			}
		}
	}
	return true
}

// String renders the set in query syntax with sorted fields, mainly for
// diagnostics.
func (s *Set) String() string {
	if s.IsEmpty() {
		return "{}"
	}
	var sb strings.Builder
	s.render(&sb)
	return sb.String()
}

func (s *Set) render(sb *strings.Builder) {
	groups := s.byCondition()
	conds := make([]string, 0, len(groups))
	for c := range groups {
		conds = append(conds, c)
	}
	sort.Strings(conds)
	sb.WriteString("{")
	for _, cond := range conds {
		fields := groups[cond]
		if cond != s.typeName {
			fmt.Fprintf(sb, " ... on %s {", cond)
		}
		names := make([]string, 0, len(fields))
		for n := range fields {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			sb.WriteString(" ")
			sb.WriteString(n)
			if child := fields[n]; !child.IsEmpty() {
				sb.WriteString(" ")
				child.render(sb)
			}
		}
		if cond != s.typeName {
			sb.WriteString(" }")
		}
	}
	sb.WriteString(" }")
}

func (s *Set) byCondition() map[string]map[string]*Set {
	out := map[string]map[string]*Set{}
	for _, b := range s.branches {
		if len(b.order) == 0 {
			continue
		}
		cond := b.effectiveCondition(s.typeName)
		fields := out[cond]
		if fields == nil {
			fields = map[string]*Set{}
			out[cond] = fields
		}
		for _, name := range b.order {
			if prev, ok := fields[name]; ok {
				fields[name] = merge(prev, b.children[name])
			} else {
				fields[name] = b.children[name]
			}
		}
	}
	return out
}

func (s *Set) covers(cond, typeName string) bool {
	if s.schema == nil {
		return cond == typeName
	}
	return s.schema.Covers(cond, typeName)
}

func (s *Set) fieldType(field string) string {
	if s.schema == nil {
		return ""
	}
	if t := s.schema.Types[s.typeName]; t != nil {
		if f := t.Field(field); f != nil {
			return f.Type.GetNamedType()
		}
	}
	for _, b := range s.branches {
		if t := s.schema.Types[b.condition]; t != nil {
			if f := t.Field(field); f != nil {
				return f.Type.GetNamedType()
			}
		}
	}
	return ""
}

func (b *branch) effectiveCondition(typeName string) string {
	if b.condition == "" {
		return typeName
	}
	return b.condition
}

func (b *branch) add(name string, child *Set) {
	if prev, ok := b.children[name]; ok {
		b.children[name] = merge(prev, child)
		return
	}
	b.order = append(b.order, name)
	b.children[name] = child
}

// merge combines two selections of the same field into a new set.
func merge(a, b *Set) *Set {
	if b.IsEmpty() {
		return a
	}
	if a.IsEmpty() {
		return b
	}
	out := &Set{typeName: a.typeName, schema: a.schema}
	for _, src := range [][]*branch{a.branches, b.branches} {
		for _, br := range src {
			target := out.branchFor(br.condition)
			for _, name := range br.order {
				target.add(name, br.children[name])
			}
		}
	}
	return out
}

func (s *Set) branchFor(condition string) *branch {
	if condition == s.typeName {
		condition = ""
	}
	for _, b := range s.branches {
		if b.condition == condition {
			return b
		}
	}
	b := &branch{condition: condition, children: map[string]*Set{}}
	s.branches = append(s.branches, b)
	return b
}
