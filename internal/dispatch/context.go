package dispatch

import (
	"sort"

	"github.com/spf13/cast"

	"github.com/hanpama/graphrt/internal/globalid"
	"github.com/hanpama/graphrt/internal/selection"
)

// FieldContext is what a field resolver receives for one field instance.
type FieldContext struct {
	Coordinate Coordinate
	Arguments  Values
	// Object is the parent value as produced by the parent resolver.
	Object any
	// ObjectValue and QueryValue hold the results of the binding's required
	// selection, keyed by response name.
	ObjectValue Values
	QueryValue  Values
	// Selections is what the query requested under this field.
	Selections *selection.Set
	Path       []any
	Caller     any
	IDs        *globalid.Codec
}

// NodeContext is what a node loader receives for one lookup.
type NodeContext struct {
	ID         globalid.ID
	Selections *selection.Set
	Path       []any
	Caller     any
	IDs        *globalid.Codec
}

// VariableContext is passed to variable providers.
type VariableContext struct {
	Coordinate Coordinate
	Arguments  Values
	Object     any
	Path       []any
	Caller     any
}

// Values is a read-only view over a map of named values. The zero value is
// empty.
type Values struct {
	m map[string]any
}

// NewValues wraps m. The map must not be modified afterwards.
func NewValues(m map[string]any) Values { return Values{m: m} }

func (v Values) Get(key string) (any, bool) {
	val, ok := v.m[key]
	return val, ok
}

func (v Values) Has(key string) bool {
	_, ok := v.m[key]
	return ok
}

// Value returns the raw value or nil.
func (v Values) Value(key string) any { return v.m[key] }

func (v Values) String(key string) string   { return cast.ToString(v.m[key]) }
func (v Values) Int(key string) int         { return cast.ToInt(v.m[key]) }
func (v Values) Int64(key string) int64     { return cast.ToInt64(v.m[key]) }
func (v Values) Float64(key string) float64 { return cast.ToFloat64(v.m[key]) }
func (v Values) Bool(key string) bool       { return cast.ToBool(v.m[key]) }

func (v Values) StringSlice(key string) []string { return cast.ToStringSlice(v.m[key]) }

// Object returns the nested object under key.
func (v Values) Object(key string) Values {
	m, _ := v.m[key].(map[string]any)
	return Values{m: m}
}

// List returns the nested objects of a list under key. Non-object items
// become empty Values.
func (v Values) List(key string) []Values {
	items, _ := v.m[key].([]any)
	out := make([]Values, len(items))
	for i, item := range items {
		m, _ := item.(map[string]any)
		out[i] = Values{m: m}
	}
	return out
}

func (v Values) Len() int { return len(v.m) }

// Keys returns the keys in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the underlying map.
func (v Values) Map() map[string]any {
	out := make(map[string]any, len(v.m))
	for k, val := range v.m {
		out[k] = val
	}
	return out
}
