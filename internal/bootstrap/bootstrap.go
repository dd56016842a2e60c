// Package bootstrap validates resolver modules against a schema and
// produces the immutable service shared by every request.
package bootstrap

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/hanpama/graphrt/internal/dispatch"
	"github.com/hanpama/graphrt/internal/eventbus"
	"github.com/hanpama/graphrt/internal/events"
	"github.com/hanpama/graphrt/internal/globalid"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/required"
	"github.com/hanpama/graphrt/internal/schema"
)

// Built-in root fields answered through node loaders when left unbound.
const (
	NodeField  = "node"
	NodesField = "nodes"
)

// Service is everything a request needs, validated and read-only.
type Service struct {
	Schema   *schema.Schema
	Registry *dispatch.Registry
	Plan     *required.Plan
	Codec    *globalid.Codec
	Cache    *language.DocumentCache
}

// Options configures Build.
type Options struct {
	Modules []dispatch.Module
	// Cache parses required-selection fragments; one is created when nil.
	Cache *language.DocumentCache
}

// Build validates opts.Modules against sch. On failure the error is a
// ValidationError listing every violation; typed causes such as
// *required.CycleError are reachable with errors.As.
func Build(ctx context.Context, sch *schema.Schema, opts Options) (*Service, error) {
	start := time.Now()
	cache := opts.Cache
	if cache == nil {
		var err error
		if cache, err = language.NewDocumentCache(0); err != nil {
			return nil, err
		}
	}

	svc, violations := build(sch, opts.Modules, cache)
	ev := events.Bootstrap{Modules: len(opts.Modules), Violations: len(violations), Duration: time.Since(start)}
	if svc != nil {
		ev.Bindings = svc.Registry.Len()
		ev.Checkers = len(svc.Registry.Checkers())
		ev.Requirements = svc.Plan.Len()
	}
	eventbus.Publish(ctx, ev)
	if len(violations) > 0 {
		return nil, ValidationError(violations)
	}
	return svc, nil
}

func build(sch *schema.Schema, modules []dispatch.Module, cache *language.DocumentCache) (*Service, []*Violation) {
	reg, err := dispatch.NewRegistry(modules...)
	if err != nil {
		return nil, registryViolations(err)
	}

	violations := checkBindings(sch, reg)
	if len(violations) > 0 {
		return nil, violations
	}

	plan, err := required.Compile(sch, reg, cache)
	if err != nil {
		return nil, planViolations(err)
	}
	return &Service{
		Schema:   sch,
		Registry: reg,
		Plan:     plan,
		Codec:    globalid.NewCodec(sch),
		Cache:    cache,
	}, nil
}

func registryViolations(err error) []*Violation {
	var dup *dispatch.DuplicateBindingError
	if errors.As(err, &dup) {
		out := make([]*Violation, 0, len(dup.Duplicates))
		for _, d := range dup.Duplicates {
			v := violation(d.Coordinate.String(), "duplicate %s binding in modules %q and %q", d.Kind, d.First, d.Second)
			v.Err = err
			out = append(out, v)
		}
		return out
	}
	var invalid *dispatch.InvalidBindingError
	if errors.As(err, &invalid) {
		v := violation(invalid.Coordinate.String(), "%s", invalid.Error())
		v.Err = err
		return []*Violation{v}
	}
	return []*Violation{{Message: err.Error(), Err: err}}
}

func planViolations(err error) []*Violation {
	if ce := required.AsCycleError(err); ce != nil {
		return []*Violation{{Message: ce.Error(), Coordinate: ce.Cycle[0].String(), Err: ce}}
	}
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	out := make([]*Violation, 0, len(errs))
	for _, e := range errs {
		v := &Violation{Message: e.Error(), Err: e}
		var decl *required.DeclarationError
		if errors.As(e, &decl) {
			v.Coordinate = decl.Coordinate.String()
		}
		out = append(out, v)
	}
	return out
}

// checkBindings cross-checks bindings and checkers with the schema, and
// requires a binding for every @resolver field.
func checkBindings(sch *schema.Schema, reg *dispatch.Registry) []*Violation {
	var out []*Violation
	for _, b := range reg.Bindings() {
		c := b.Coordinate
		t := sch.Types[c.TypeName]
		switch {
		case t == nil:
			out = append(out, violation(c.String(), "binding for unknown type %q", c.TypeName))
		case b.Shape.IsNode():
			if !t.IsNode() {
				out = append(out, violation(c.String(), "node binding for type %q which does not implement %s", c.TypeName, schema.NodeInterface))
			}
		case t.Kind != schema.TypeKindObject:
			out = append(out, violation(c.String(), "field binding on %s type %q; bind the implementing object types", t.Kind, c.TypeName))
		case t.Field(c.FieldName) == nil:
			out = append(out, violation(c.String(), "binding for field %q which is not defined on %q", c.FieldName, c.TypeName))
		}
	}
	for _, ch := range reg.Checkers() {
		c := ch.Coordinate
		t := sch.Types[c.TypeName]
		switch {
		case t == nil:
			out = append(out, violation(c.String(), "checker for unknown type %q", c.TypeName))
		case c.IsType() && t.Kind != schema.TypeKindObject:
			out = append(out, violation(c.String(), "type checker on %s type %q", t.Kind, c.TypeName))
		case !c.IsType() && t.Field(c.FieldName) == nil:
			out = append(out, violation(c.String(), "checker for field %q which is not defined on %q", c.FieldName, c.TypeName))
		}
	}
	for _, name := range sortedTypeNames(sch) {
		t := sch.Types[name]
		if t.Kind != schema.TypeKindObject {
			continue
		}
		for _, f := range t.Fields {
			if !f.Resolved {
				continue
			}
			c := dispatch.FieldCoordinate(t.Name, f.Name)
			if reg.ResolverFor(c) != nil || isBuiltinNodeField(sch, c) {
				continue
			}
			out = append(out, violation(c.String(), "field marked @%s has no resolver binding", schema.ResolverDirectiveName))
		}
	}
	return out
}

// isBuiltinNodeField reports whether c is Query.node or Query.nodes.
func isBuiltinNodeField(sch *schema.Schema, c dispatch.Coordinate) bool {
	return c.TypeName == sch.QueryType && (c.FieldName == NodeField || c.FieldName == NodesField)
}

func sortedTypeNames(sch *schema.Schema) []string {
	names := make([]string, 0, len(sch.Types))
	for name := range sch.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
