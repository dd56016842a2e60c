// Package fielderr classifies runtime errors produced while resolving a query.
//
// Every error that reaches the response carries exactly one Kind. Fatality is
// a property of the kind: a fatal error aborts the whole response, any other
// kind nulls the affected field and leaves its siblings alone.
package fielderr

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind enumerates error classes.
type Kind int

const (
	// KindResolver is an ordinary failure raised by resolver code.
	KindResolver Kind = iota
	// KindPolicyDenied is a checker rejecting access to a field or type.
	KindPolicyDenied
	// KindMalformedID is a caller-supplied global identifier that cannot be decoded.
	KindMalformedID
	// KindRequiredSelection is a failure while fetching a resolver's declared prerequisites.
	KindRequiredSelection
	// KindInternal is a framework invariant violation or a cancelled request.
	KindInternal
)

var kindCodes = [...]string{
	KindResolver:          "RESOLVER_ERROR",
	KindPolicyDenied:      "POLICY_DENIED",
	KindMalformedID:       "MALFORMED_ID",
	KindRequiredSelection: "REQUIRED_SELECTION_FAILED",
	KindInternal:          "INTERNAL",
}

// Code returns the value written to extensions.code.
func (k Kind) Code() string {
	if k < 0 || int(k) >= len(kindCodes) {
		return "UNKNOWN"
	}
	return kindCodes[k]
}

func (k Kind) String() string { return k.Code() }

// Fatal reports whether errors of this kind abort the response.
func (k Kind) Fatal() bool { return k == KindInternal }

// Error is a classified, path-independent error. The executor attaches the
// path when it records the error in the response.
type Error struct {
	Kind       Kind
	Message    string
	Extensions map[string]any
	Cause      error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf formats a message for an error of the given kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause. The message defaults to the cause's text.
func Wrap(kind Kind, cause error, message string) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Internal returns a fatal error annotated with the current stack.
func Internal(format string, args ...any) *Error {
	cause := pkgerrors.Errorf(format, args...)
	return &Error{Kind: KindInternal, Message: cause.Error(), Cause: cause}
}

// WithExtensions returns a copy of e with extra extension entries.
func (e *Error) WithExtensions(ext map[string]any) *Error {
	out := *e
	out.Extensions = make(map[string]any, len(e.Extensions)+len(ext))
	for k, v := range e.Extensions {
		out.Extensions[k] = v
	}
	for k, v := range ext {
		out.Extensions[k] = v
	}
	return &out
}

// KindOf classifies any error. Unclassified errors are resolver errors;
// context cancellation is internal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindInternal
	}
	return KindResolver
}

// IsFatal reports whether err aborts the response.
func IsFatal(err error) bool { return err != nil && KindOf(err).Fatal() }

// From converts err to *Error, classifying it with KindOf when needed.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return Wrap(KindOf(err), err, "")
}

// Extensions returns the response extensions for err, always including code.
func Extensions(err error) map[string]any {
	fe := From(err)
	ext := make(map[string]any, len(fe.Extensions)+1)
	for k, v := range fe.Extensions {
		ext[k] = v
	}
	ext["code"] = fe.Kind.Code()
	return ext
}
