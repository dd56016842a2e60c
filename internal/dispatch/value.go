package dispatch

import (
	"errors"

	"github.com/hanpama/graphrt/internal/fielderr"
)

// ErrNotFound marks a batch item with no result. The executor completes such
// items as null without reporting an error.
var ErrNotFound = errors.New("dispatch: not found")

// FieldValue is one item of a batch result: a value or an error.
type FieldValue struct {
	Value any
	Err   error
}

// Value returns a successful item.
func Value(v any) FieldValue { return FieldValue{Value: v} }

// Failure returns a failed item.
func Failure(err error) FieldValue { return FieldValue{Err: err} }

// Failed returns a failed item carrying a structured resolver error.
func Failed(message string, extensions map[string]any, cause error) FieldValue {
	err := fielderr.Wrap(fielderr.KindResolver, cause, message).WithExtensions(extensions)
	return FieldValue{Err: err}
}

// OrderByKeys lines values up with keys using keyFn. Keys with no value get
// an ErrNotFound item.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn func(V) K) []FieldValue {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	out := make([]FieldValue, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			out[i] = Value(v)
		} else {
			out[i] = Failure(ErrNotFound)
		}
	}
	return out
}

// GroupByKey groups values by keyFn, for one-to-many batch results.
func GroupByKey[K comparable, V any](values []V, keyFn func(V) K) map[K][]V {
	out := make(map[K][]V)
	for _, v := range values {
		k := keyFn(v)
		out[k] = append(out[k], v)
	}
	return out
}

// OrderGroupsByKeys returns one list item per key, empty when the key has no
// values.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) []FieldValue {
	out := make([]FieldValue, len(keys))
	for i, key := range keys {
		items := groups[key]
		if items == nil {
			items = []V{}
		}
		out[i] = Value(items)
	}
	return out
}
