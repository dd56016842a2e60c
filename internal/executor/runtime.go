package executor

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/hanpama/graphrt/internal/schema"
)

// Runtime covers the work the executor does without a resolver binding:
// reading unbound fields from their parent value, naming the concrete type
// of abstract values and serializing leaves.
//
// Contract
//   - Methods run on the executor's scheduling goroutine between waves and
//     must not block on I/O. Anything that performs I/O belongs in a
//     dispatch binding, where it is batched and run concurrently.
//   - Errors become located field errors of kind RESOLVER_ERROR. Non-Null
//     positions propagate the resulting null to the nearest nullable
//     ancestor.
//   - Implementations must be safe for concurrent use by different requests
//     and must not mutate source or args.
type Runtime interface {
	// ResolveSync reads field of objectType from source. Root fields receive
	// the request's initial value. Return (nil, nil) for null.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// ResolveType returns the concrete object type of a value at an interface
	// or union position. The result must be a possible type of abstractType.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue converts a scalar or enum value into a JSON-safe Go
	// value. Enums serialize to their symbolic name.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// TypeNamer lets values name their own GraphQL type for ResolveType.
type TypeNamer interface {
	TypeName() string
}

// DefaultRuntime reads fields from maps and structs and serializes built-in
// scalars and enums as defined by its schema.
type DefaultRuntime struct {
	Schema *schema.Schema
}

// NewDefaultRuntime returns a DefaultRuntime for sch.
func NewDefaultRuntime(sch *schema.Schema) *DefaultRuntime {
	return &DefaultRuntime{Schema: sch}
}

// ResolveSync reads map entries by key and struct fields by json tag or by
// case-insensitive name.
func (r *DefaultRuntime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[field], nil
	}
	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		v := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		if v, ok := structField(rv, field); ok {
			return v.Interface(), nil
		}
		return nil, fmt.Errorf("%s.%s: no such field on %s", objectType, field, rv.Type())
	}
	return nil, fmt.Errorf("%s.%s: cannot read field from %T", objectType, field, source)
}

func structField(rv reflect.Value, name string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if tag == name || (tag == "" && strings.EqualFold(sf.Name, name)) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// ResolveType checks, in order, a "__typename" map entry, TypeNamer, the Go
// type name and finally an abstract type with a single possible type.
func (r *DefaultRuntime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	if tn, ok := value.(TypeNamer); ok {
		return tn.TypeName(), nil
	}
	possible := r.Schema.PossibleTypes(abstractType)
	rt := reflect.TypeOf(value)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt != nil {
		for _, p := range possible {
			if p == rt.Name() {
				return p, nil
			}
		}
	}
	if len(possible) == 1 {
		return possible[0], nil
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s from %T", abstractType, value)
}

// SerializeLeafValue coerces built-in scalars with cast, validates enum
// names and passes custom scalars through.
func (r *DefaultRuntime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	switch typeName {
	case "Int":
		n, err := cast.ToInt64E(value)
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent %v: %w", value, err)
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %d", n)
		}
		return int(n), nil
	case "Float":
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, fmt.Errorf("Float cannot represent %v: %w", value, err)
		}
		return f, nil
	case "String", "ID":
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("%s cannot represent %v: %w", typeName, value, err)
		}
		return s, nil
	case "Boolean":
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, fmt.Errorf("Boolean cannot represent %v: %w", value, err)
		}
		return b, nil
	}
	t := r.Schema.Types[typeName]
	if t == nil || t.Kind != schema.TypeKindEnum {
		return value, nil
	}
	var name string
	switch v := value.(type) {
	case string:
		name = v
	case fmt.Stringer:
		name = v.String()
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.String {
			return nil, fmt.Errorf("enum %s cannot represent %v", typeName, value)
		}
		name = rv.String()
	}
	for _, ev := range t.EnumValues {
		if ev.Name == name {
			return name, nil
		}
	}
	return nil, fmt.Errorf("enum %s has no value %q", typeName, name)
}
