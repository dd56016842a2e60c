package executor

import (
	"context"
	"errors"

	"github.com/spf13/cast"

	"github.com/hanpama/graphrt/internal/bootstrap"
	"github.com/hanpama/graphrt/internal/dispatch"
	"github.com/hanpama/graphrt/internal/fielderr"
	"github.com/hanpama/graphrt/internal/globalid"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/policy"
	"github.com/hanpama/graphrt/internal/schema"
	"github.com/hanpama/graphrt/internal/selection"
)

// lookupNode resolves id through the node loader of its type and completes
// the loaded object at s. The type checker of id.Type runs first.
func (st *executionState) lookupNode(sc *scope, s *slot, expected string, sel language.SelectionSet, id globalid.ID) {
	if !st.schema.IsNodeType(id.Type) || !st.schema.Covers(expected, id.Type) {
		st.fail(sc, s, fielderr.Newf(fielderr.KindResolver, "node of type %s cannot be returned as %s", id.Type, expected))
		return
	}
	b := st.exec.registry.NodeResolverFor(id.Type)
	if b == nil {
		st.fail(sc, s, fielderr.Newf(fielderr.KindResolver, "no node resolver for type %s", id.Type))
		return
	}
	load := func() { st.loadNode(sc, s, b, expected, sel, id) }
	if cb := st.exec.registry.CheckerFor(dispatch.TypeCoordinate(id.Type)); cb != nil {
		subject := &policy.Subject{TypeName: id.Type, ID: &id, Caller: st.caller}
		st.check(sc, s, cb, subject, load)
		return
	}
	load()
}

func (st *executionState) loadNode(sc *scope, s *slot, b *dispatch.Binding, expected string, sel language.SelectionSet, id globalid.ID) {
	set, err := selection.FromSelectionSet(st.schema, expected, sel, selection.Source{Fragments: sc.fragments, Variables: sc.variables})
	if err != nil {
		st.fail(sc, s, err)
		return
	}
	nc := &dispatch.NodeContext{
		ID:         id,
		Selections: set.NarrowTo(id.Type),
		Path:       s.path(),
		Caller:     st.caller,
		IDs:        st.exec.codec,
	}
	done := func(v any, err error) {
		if err != nil && !errors.Is(err, dispatch.ErrNotFound) {
			st.fail(sc, s, err)
			return
		}
		if err != nil || isNullish(v) {
			st.null(sc, s)
			return
		}
		st.completeObject(sc, s, st.schema.Types[id.Type], sel, v, true)
	}
	if b.Shape == dispatch.ShapeBatchNode {
		st.enqueueBatch(b, &batchItem{slot: s, scope: sc, node: nc, done: done})
		return
	}
	st.enqueue(&call{
		slot:       s,
		scope:      sc,
		coordinate: b.Coordinate,
		kind:       b.Shape.String(),
		run:        func(ctx context.Context) (any, error) { return b.Load(ctx, nc) },
		done:       done,
	})
}

// isBuiltinNodeField reports whether def is an unbound Query.node or
// Query.nodes answered through the codec.
func (st *executionState) isBuiltinNodeField(t *schema.Type, def *schema.Field) bool {
	if st.exec.codec == nil || t.Name != st.schema.QueryType {
		return false
	}
	return def.Name == bootstrap.NodeField || def.Name == bootstrap.NodesField
}

func (st *executionState) builtinNode(fi *fieldInstance) {
	sc, s := fi.scope, fi.slot
	if fi.def.Name == bootstrap.NodeField {
		id, err := st.exec.codec.Deserialize(cast.ToString(fi.args["id"]))
		if err != nil {
			st.fail(sc, s, fielderr.Wrap(fielderr.KindMalformedID, err, ""))
			return
		}
		st.lookupNode(sc, s, fi.def.Type.GetNamedType(), fi.sel, id)
		return
	}

	raw := cast.ToStringSlice(fi.args["ids"])
	listType := fi.def.Type
	if listType.IsNonNull() {
		listType = listType.OfType
	}
	inner := listType.OfType
	if inner == nil {
		st.fail(sc, s, fielderr.Newf(fielderr.KindResolver, "%s must return a list", fi.coord))
		return
	}
	out := make([]any, len(raw))
	s.write(out)
	for i, text := range raw {
		is := s.child(i, !inner.IsNonNull(), func(v any) { out[i] = v })
		id, err := st.exec.codec.Deserialize(text)
		if err != nil {
			st.fail(sc, is, fielderr.Wrap(fielderr.KindMalformedID, err, ""))
		} else {
			st.lookupNode(sc, is, inner.GetNamedType(), fi.sel, id)
		}
		if s.isDead() {
			return
		}
	}
}
