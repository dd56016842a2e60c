package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/hanpama/graphrt/internal/dispatch"
	"github.com/hanpama/graphrt/internal/fielderr"
	"github.com/hanpama/graphrt/internal/globalid"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/policy"
	"github.com/hanpama/graphrt/internal/required"
	"github.com/hanpama/graphrt/internal/schema"
	"github.com/hanpama/graphrt/internal/selection"
)

// fieldInstance is one field of one object in the result tree.
type fieldInstance struct {
	scope  *scope
	slot   *slot
	parent *schema.Type
	def    *schema.Field
	coord  dispatch.Coordinate
	fields []*language.Field
	sel    language.SelectionSet
	args   map[string]any
	source any
}

func (st *executionState) completeRoot(sc *scope, s *slot, t *schema.Type, sel language.SelectionSet, value any, serial bool) {
	if !serial {
		st.completeObject(sc, s, t, sel, value, false)
		return
	}
	m := make(map[string]any)
	s.write(m)
	st.executeSerially(sc, s, m, t, value, st.collectFields(sc, t, sel))
}

// executeSerially runs each field to completion, including everything
// beneath it, before starting the next one.
func (st *executionState) executeSerially(sc *scope, s *slot, m map[string]any, t *schema.Type, value any, fields []collectedField) {
	if len(fields) == 0 || s.isDead() {
		return
	}
	step := &scope{fragments: sc.fragments, variables: sc.variables, errors: sc.errors, pending: 1}
	st.hold(sc)
	step.onDone = func() {
		st.later(sc, func() { st.executeSerially(sc, s, m, t, value, fields[1:]) })
		st.release(sc)
	}
	cf := fields[0]
	st.later(step, func() { st.executeField(step, s, m, t, value, cf) })
	st.release(step)
}

// completeValue writes value, completed against typ, into s.
func (st *executionState) completeValue(sc *scope, s *slot, typ *schema.TypeRef, sel language.SelectionSet, value any) {
	if s.isDead() {
		return
	}
	if typ.IsNonNull() {
		typ = typ.OfType
	}
	if isNullish(value) {
		st.null(sc, s)
		return
	}
	if typ.Kind == schema.TypeRefKindList {
		st.completeList(sc, s, typ, sel, value)
		return
	}

	named := st.schema.Types[typ.Named]
	if named == nil {
		st.fail(sc, s, fielderr.Newf(fielderr.KindResolver, "Unknown type: %s", typ.Named))
		return
	}
	id, isID := asGlobalID(value)
	switch named.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		if isID && st.exec.codec != nil {
			value = st.exec.codec.Serialize(id)
		}
		serialized, err := st.exec.runtime.SerializeLeafValue(st.ctx, named.Name, value)
		if err != nil {
			st.fail(sc, s, err)
			return
		}
		s.write(serialized)
	case schema.TypeKindObject, schema.TypeKindInterface, schema.TypeKindUnion:
		if isID {
			st.lookupNode(sc, s, named.Name, sel, id)
			return
		}
		concrete := named
		if named.Kind != schema.TypeKindObject {
			typeName, err := st.exec.runtime.ResolveType(st.ctx, named.Name, value)
			if err != nil {
				st.fail(sc, s, err)
				return
			}
			concrete = st.schema.Types[typeName]
			if concrete == nil || concrete.Kind != schema.TypeKindObject || !st.schema.Covers(named.Name, typeName) {
				st.fail(sc, s, fielderr.Newf(fielderr.KindResolver, "Abstract type %s must resolve to an Object type at runtime. Got: %s", named.Name, typeName))
				return
			}
		}
		st.completeObject(sc, s, concrete, sel, value, false)
	default:
		st.fail(sc, s, fielderr.Newf(fielderr.KindResolver, "Cannot complete value of unexpected type: %s", named.Kind))
	}
}

func (st *executionState) completeList(sc *scope, s *slot, listType *schema.TypeRef, sel language.SelectionSet, value any) {
	var items []any
	if direct, ok := value.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			st.fail(sc, s, fielderr.Newf(fielderr.KindResolver, "Expected list value, got %T", value))
			return
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := listType.OfType
	completed := make([]any, len(items))
	s.write(completed)
	for i, item := range items {
		is := s.child(i, !inner.IsNonNull(), func(v any) { completed[i] = v })
		st.completeValue(sc, is, inner, sel, item)
		if s.isDead() {
			return
		}
	}
}

// completeObject exposes value as an object of type t once the type checker
// of t allows it. checked skips the checker for objects that already passed
// it, such as node lookups and required-selection parents.
func (st *executionState) completeObject(sc *scope, s *slot, t *schema.Type, sel language.SelectionSet, value any, checked bool) {
	if !checked {
		if cb := st.exec.registry.CheckerFor(dispatch.TypeCoordinate(t.Name)); cb != nil {
			subject := &policy.Subject{TypeName: t.Name, Object: value, Caller: st.caller}
			st.check(sc, s, cb, subject, func() { st.exposeObject(sc, s, t, sel, value) })
			return
		}
	}
	st.exposeObject(sc, s, t, sel, value)
}

func (st *executionState) exposeObject(sc *scope, s *slot, t *schema.Type, sel language.SelectionSet, value any) {
	m := make(map[string]any)
	s.write(m)
	for _, cf := range st.collectFields(sc, t, sel) {
		st.later(sc, func() { st.executeField(sc, s, m, t, value, cf) })
	}
}

func (st *executionState) check(sc *scope, s *slot, cb *dispatch.CheckerBinding, subject *policy.Subject, allowed func()) {
	st.enqueue(&call{
		slot:       s,
		scope:      sc,
		coordinate: cb.Coordinate,
		kind:       "checker",
		run: func(ctx context.Context) (any, error) {
			return nil, policy.Check(ctx, cb.Policy, subject)
		},
		done: func(_ any, err error) {
			if err == nil {
				allowed()
				return
			}
			if fe := st.classify(err); fe.Kind.Fatal() {
				st.abort(fe)
				return
			}
			st.fail(sc, s, fielderr.Wrap(fielderr.KindPolicyDenied, err, fmt.Sprintf("access to %s denied", cb.Coordinate)))
		},
	})
}

func (st *executionState) executeField(sc *scope, parent *slot, m map[string]any, t *schema.Type, source any, cf collectedField) {
	if parent.isDead() {
		return
	}
	name := cf.responseName
	field := cf.nodes[0]
	if field.Name == "__typename" {
		m[name] = t.Name
		return
	}

	s := parent.child(name, true, func(v any) { m[name] = v })
	def := t.Field(field.Name)
	if def == nil {
		st.record(sc, s.path(), fielderr.Newf(fielderr.KindResolver, "Cannot query field '%s' on type '%s'", field.Name, t.Name))
		return
	}
	s.nullable = !def.Type.IsNonNull()

	args, err := coerceArgumentValues(st.schema, def, field.Arguments, sc.variables)
	if err != nil {
		st.fail(sc, s, err)
		return
	}
	fi := &fieldInstance{
		scope:  sc,
		slot:   s,
		parent: t,
		def:    def,
		coord:  dispatch.FieldCoordinate(t.Name, def.Name),
		fields: cf.nodes,
		sel:    cf.selectionSet(),
		args:   args,
		source: source,
	}

	b := st.exec.registry.ResolverFor(fi.coord)
	if cb := st.exec.registry.CheckerFor(fi.coord); cb != nil {
		subject := &policy.Subject{
			TypeName:  t.Name,
			FieldName: def.Name,
			Object:    source,
			Arguments: args,
			Caller:    st.caller,
		}
		st.check(sc, s, cb, subject, func() { st.resolveField(fi, b) })
		return
	}
	st.resolveField(fi, b)
}

// resolveField produces the value of a field whose checker, if any, already
// allowed it. Bound fields run their required selection and resolver; the
// built-in node fields go through the codec; everything else is read from
// the runtime.
func (st *executionState) resolveField(fi *fieldInstance, b *dispatch.Binding) {
	switch {
	case b != nil:
		st.prepareField(fi, b)
	case st.isBuiltinNodeField(fi.parent, fi.def):
		st.builtinNode(fi)
	default:
		value, err := st.exec.runtime.ResolveSync(st.ctx, fi.parent.Name, fi.def.Name, fi.source, fi.args)
		if err != nil {
			st.fail(fi.scope, fi.slot, err)
			return
		}
		st.completeValue(fi.scope, fi.slot, fi.def.Type, fi.sel, value)
	}
}

func (st *executionState) prepareField(fi *fieldInstance, b *dispatch.Binding) {
	var req *required.Requirement
	if st.exec.plan != nil {
		req = st.exec.plan.For(fi.coord)
	}
	if req == nil {
		st.callField(fi, b, dispatch.Values{}, dispatch.Values{})
		return
	}
	vc := &dispatch.VariableContext{
		Coordinate: fi.coord,
		Arguments:  dispatch.NewValues(fi.args),
		Object:     fi.source,
		Path:       fi.slot.path(),
		Caller:     st.caller,
	}
	if !hasProvider(req) {
		vars, err := req.BindVariables(st.ctx, vc)
		if err != nil {
			st.fail(fi.scope, fi.slot, err)
			return
		}
		st.fetchRequired(fi, b, req, vars)
		return
	}
	st.enqueue(&call{
		slot:       fi.slot,
		scope:      fi.scope,
		coordinate: fi.coord,
		kind:       "variables",
		run: func(ctx context.Context) (any, error) {
			return req.BindVariables(ctx, vc)
		},
		done: func(v any, err error) {
			if err != nil {
				st.fail(fi.scope, fi.slot, err)
				return
			}
			vars, _ := v.(map[string]any)
			st.fetchRequired(fi, b, req, vars)
		},
	})
}

func hasProvider(req *required.Requirement) bool {
	for _, v := range req.Variables {
		if v.Source.Provider != nil {
			return true
		}
	}
	return false
}

// fetchRequired executes the requirement's fragments through the regular
// field pathway and calls the resolver once both have completed.
func (st *executionState) fetchRequired(fi *fieldInstance, b *dispatch.Binding, req *required.Requirement, vars map[string]any) {
	sc := fi.scope
	var objectOut, queryOut any
	var failure *GraphQLError
	var failedPart string

	remaining := 1
	st.hold(sc)
	finished := func() {
		remaining--
		if remaining > 0 {
			return
		}
		st.later(sc, func() {
			if fi.slot.isDead() {
				return
			}
			if failure != nil {
				requiredPath := append(Path{failedPart}, failure.Path...)
				err := fielderr.Newf(fielderr.KindRequiredSelection, "required selection of %s failed: %s", fi.coord, failure.Message).
					WithExtensions(map[string]any{"requiredPath": requiredPath})
				st.fail(sc, fi.slot, err)
				return
			}
			st.callField(fi, b, valuesOf(objectOut), valuesOf(queryOut))
		})
		st.release(sc)
	}
	start := func(part string, frag *language.Fragment, t *schema.Type, value any, out *any) {
		remaining++
		st.subFetch(frag, vars, t, value, out, func(errs []GraphQLError) {
			if len(errs) > 0 && failure == nil {
				failure = &errs[0]
				failedPart = part
			}
			finished()
		})
	}
	if req.Object != nil {
		start("object", req.Object, fi.parent, fi.source, &objectOut)
	}
	if req.Query != nil {
		start("query", req.Query, st.schema.QueryRoot(), st.root, &queryOut)
	}
	finished()
}

// subFetch completes frag against value in a scope of its own and reports
// that scope's errors once everything beneath it has finished.
func (st *executionState) subFetch(frag *language.Fragment, vars map[string]any, t *schema.Type, value any, out *any, done func([]GraphQLError)) {
	var errs []GraphQLError
	sub := &scope{fragments: frag.Document.Fragments, variables: vars, errors: &errs, pending: 1}
	sub.onDone = func() { done(errs) }
	holder := &slot{nullable: true, write: func(v any) { *out = v }}
	st.completeObject(sub, holder, t, frag.Main.SelectionSet, value, true)
	st.release(sub)
}

func valuesOf(v any) dispatch.Values {
	m, _ := v.(map[string]any)
	return dispatch.NewValues(m)
}

func (st *executionState) callField(fi *fieldInstance, b *dispatch.Binding, objectValue, queryValue dispatch.Values) {
	sel, err := st.selections(fi.scope, fi.def.Type, fi.parent.Name, fi.fields, fi.sel)
	if err != nil {
		st.fail(fi.scope, fi.slot, err)
		return
	}
	fc := &dispatch.FieldContext{
		Coordinate:  fi.coord,
		Arguments:   dispatch.NewValues(fi.args),
		Object:      fi.source,
		ObjectValue: objectValue,
		QueryValue:  queryValue,
		Selections:  sel,
		Path:        fi.slot.path(),
		Caller:      st.caller,
		IDs:         st.exec.codec,
	}
	done := func(v any, err error) { st.fieldResult(fi, v, err) }
	if b.Shape == dispatch.ShapeBatchField {
		st.enqueueBatch(b, &batchItem{slot: fi.slot, scope: fi.scope, field: fc, done: done})
		return
	}
	st.enqueue(&call{
		slot:       fi.slot,
		scope:      fi.scope,
		coordinate: fi.coord,
		kind:       b.Shape.String(),
		run:        func(ctx context.Context) (any, error) { return b.Call(ctx, fc) },
		done:       done,
	})
}

func (st *executionState) fieldResult(fi *fieldInstance, v any, err error) {
	if err != nil && !errors.Is(err, dispatch.ErrNotFound) {
		st.fail(fi.scope, fi.slot, err)
		return
	}
	if err != nil {
		v = nil
	}
	st.completeValue(fi.scope, fi.slot, fi.def.Type, fi.sel, v)
}

// selections builds the selection set passed to resolvers, once per field
// group and scope.
func (st *executionState) selections(sc *scope, typ *schema.TypeRef, parent string, fields []*language.Field, sel language.SelectionSet) (*selection.Set, error) {
	named := st.schema.Types[typ.GetNamedType()]
	if named == nil || !named.IsComposite() {
		return selection.Empty(st.schema, typ.GetNamedType()), nil
	}
	key := setKey{field: fields[0], parent: parent, n: len(fields)}
	if set, ok := sc.sets[key]; ok {
		return set, nil
	}
	set, err := selection.FromSelectionSet(st.schema, named.Name, sel, selection.Source{Fragments: sc.fragments, Variables: sc.variables})
	if err != nil {
		return nil, err
	}
	if sc.sets == nil {
		sc.sets = make(map[setKey]*selection.Set)
	}
	sc.sets[key] = set
	return set, nil
}

func asGlobalID(v any) (globalid.ID, bool) {
	switch id := v.(type) {
	case globalid.ID:
		return id, true
	case *globalid.ID:
		if id != nil {
			return *id, true
		}
	}
	return globalid.ID{}, false
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
