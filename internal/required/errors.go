package required

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hanpama/graphrt/internal/dispatch"
)

// CycleError reports required selections that depend on each other. Cycle
// starts and ends with the same coordinate.
type CycleError struct {
	Cycle []dispatch.Coordinate
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, c := range e.Cycle {
		parts[i] = c.String()
	}
	return fmt.Sprintf("required selection cycle: %s", strings.Join(parts, " -> "))
}

// AsCycleError returns the CycleError in err's chain, or nil.
func AsCycleError(err error) *CycleError {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// DeclarationError reports an invalid required selection declaration.
type DeclarationError struct {
	Coordinate dispatch.Coordinate
	// Part is "object", "query" or "variables".
	Part   string
	Reason string
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("invalid required selection on %s (%s): %s", e.Coordinate, e.Part, e.Reason)
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}
