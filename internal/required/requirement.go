package required

import (
	"context"
	"errors"
	"fmt"

	"github.com/hanpama/graphrt/internal/dispatch"
	"github.com/hanpama/graphrt/internal/fielderr"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/selection"
)

// Requirement is one binding's compiled required selection.
type Requirement struct {
	Coordinate dispatch.Coordinate
	// Object and Query are nil when the binding declares no such fragment.
	Object    *language.Fragment
	Query     *language.Fragment
	Variables []dispatch.VariableBinding

	objectSet *selection.Set
	querySet  *selection.Set
}

// ObjectSelection returns what the requirement selects on the object.
func (r *Requirement) ObjectSelection() *selection.Set { return r.objectSet }

// QuerySelection returns what the requirement selects on the query root.
func (r *Requirement) QuerySelection() *selection.Set { return r.querySet }

// BindVariables computes the variables used by the fragments. Provider
// failures are reported as required selection errors.
func (r *Requirement) BindVariables(ctx context.Context, vc *dispatch.VariableContext) (map[string]any, error) {
	if len(r.Variables) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(r.Variables))
	for _, v := range r.Variables {
		if v.Source.Provider == nil {
			out[v.Name] = vc.Arguments.Value(v.Source.Argument)
			continue
		}
		val, err := v.Source.Provider(ctx, vc)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fielderr.Wrap(fielderr.KindRequiredSelection, err, fmt.Sprintf("variable $%s: %v", v.Name, err))
		}
		out[v.Name] = val
	}
	return out, nil
}
