package bootstrap

import (
	"fmt"
	"strings"
)

// Violation is one reason the service cannot start.
type Violation struct {
	Message    string `json:"message"`
	Coordinate string `json:"coordinate,omitempty"`
	// Err is the typed error behind the violation, if any.
	Err error `json:"-"`
}

// ValidationError lists every violation found at bootstrap.
type ValidationError []*Violation

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("violations found:\n")
	for _, v := range e {
		b.WriteString("- ")
		b.WriteString(v.Message)
		if v.Coordinate != "" {
			fmt.Fprintf(&b, " (%s)", v.Coordinate)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Unwrap exposes the typed errors so errors.As finds them.
func (e ValidationError) Unwrap() []error {
	var out []error
	for _, v := range e {
		if v.Err != nil {
			out = append(out, v.Err)
		}
	}
	return out
}

func violation(coordinate, format string, args ...any) *Violation {
	return &Violation{Message: fmt.Sprintf(format, args...), Coordinate: coordinate}
}
