package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/spf13/cast"

	"github.com/hanpama/graphrt/internal/schema"
)

// coercer applies input coercion rules against a schema. A nil schema
// passes custom scalars, enums and input objects through unchanged.
type coercer struct {
	sch *schema.Schema
}

var errNullForNonNull = errors.New("cannot provide null for non-null type")

func (c coercer) coerce(value any, typ *schema.TypeRef) (any, error) {
	if typ.IsNonNull() {
		if value == nil {
			return nil, errNullForNonNull
		}
		return c.coerce(value, typ.OfType)
	}
	if value == nil {
		return nil, nil
	}
	if typ.Kind == schema.TypeRefKindList {
		return c.coerceList(value, typ.OfType)
	}

	name := typ.GetNamedType()
	if scalar, ok := builtinScalarInputs[name]; ok {
		out, err := scalar(value)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %v (%T) to %s", value, value, name)
		}
		return out, nil
	}
	var named *schema.Type
	if c.sch != nil {
		named = c.sch.Types[name]
	}
	switch {
	case named == nil:
		return value, nil
	case named.Kind == schema.TypeKindEnum:
		return coerceEnumValue(named, value)
	case named.Kind == schema.TypeKindInputObject:
		return c.coerceInputObject(named, value)
	}
	return value, nil
}

// coerceList wraps a single value into a list of one.
func (c coercer) coerceList(value any, item *schema.TypeRef) (any, error) {
	items, ok := value.([]any)
	if !ok {
		items = []any{value}
	}
	out := make([]any, len(items))
	for i, v := range items {
		coerced, err := c.coerce(v, item)
		if err != nil {
			return nil, err
		}
		out[i] = coerced
	}
	return out, nil
}

func (c coercer) coerceInputObject(t *schema.Type, value any) (any, error) {
	in, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object for %s, got %T", t.Name, value)
	}
	var unknown []string
	for name := range in {
		if !slices.ContainsFunc(t.InputFields, func(f *schema.InputValue) bool { return f.Name == name }) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown field '%s' for input %s", slices.Min(unknown), t.Name)
	}

	out := make(map[string]any, len(t.InputFields))
	set := 0
	for _, f := range t.InputFields {
		v, present := in[f.Name]
		if !present {
			if f.DefaultValue != nil {
				out[f.Name] = f.DefaultValue
				set++
			} else if f.Type.IsNonNull() {
				return nil, fmt.Errorf("required field '%s' of type %s was not provided", f.Name, f.Type)
			}
			continue
		}
		coerced, err := c.coerce(v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %v", f.Name, err)
		}
		out[f.Name] = coerced
		if coerced != nil {
			set++
		}
	}
	if t.OneOf && set != 1 {
		return nil, fmt.Errorf("exactly one field of %s must be set", t.Name)
	}
	return out, nil
}

func coerceEnumValue(t *schema.Type, value any) (any, error) {
	var name string
	switch v := value.(type) {
	case string:
		name = v
	case schema.EnumLiteral:
		name = string(v)
	default:
		return nil, fmt.Errorf("cannot coerce %v (%T) to enum %s", value, value, t.Name)
	}
	if !slices.ContainsFunc(t.EnumValues, func(ev *schema.EnumValue) bool { return ev.Name == name }) {
		return nil, fmt.Errorf("value %q does not exist in enum %s", name, t.Name)
	}
	return name, nil
}

var errScalarMismatch = errors.New("scalar mismatch")

// builtinScalarInputs coerce input values of the built-in scalars. Strings
// never convert to numbers or booleans.
var builtinScalarInputs = map[string]func(any) (any, error){
	"Int": func(v any) (any, error) {
		if !isNumeric(v) {
			return nil, errScalarMismatch
		}
		f, err := cast.ToFloat64E(v)
		if err != nil || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
			return nil, errScalarMismatch
		}
		return int(f), nil
	},
	"Float": func(v any) (any, error) {
		if !isNumeric(v) {
			return nil, errScalarMismatch
		}
		return cast.ToFloat64E(v)
	},
	"String": func(v any) (any, error) {
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, errScalarMismatch
	},
	"Boolean": func(v any) (any, error) {
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, errScalarMismatch
	},
	"ID": func(v any) (any, error) {
		switch v.(type) {
		case string, json.Number, int, int32, int64:
			return cast.ToStringE(v)
		case float64:
			if f := v.(float64); f == math.Trunc(f) {
				return cast.ToStringE(int64(f))
			}
		}
		return nil, errScalarMismatch
	},
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64, json.Number:
		return true
	}
	return false
}
