// Package policy evaluates access checks that gate fields and types.
//
// A Rule returns one of the decisions Allow, Deny or Skip (nil counts as
// Skip). A Policy runs its rules in order and stops at the first Allow or
// Deny; a policy whose rules all skip allows access.
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/hanpama/graphrt/internal/globalid"
)

// Decision sentinels. Use errors.Is to test for them.
var (
	Allow = errors.New("policy: allow rule")
	Deny  = errors.New("policy: deny rule")
	Skip  = errors.New("policy: skip rule")
)

// Allowf returns a formatted error wrapping Allow.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted error wrapping Deny.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted error wrapping Skip.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Subject is the instance a check is evaluated against.
type Subject struct {
	// TypeName is the object type being exposed, or the parent type of a
	// field check.
	TypeName string
	// FieldName is empty for type checks.
	FieldName string
	// Object is the object value, or the parent value for field checks. It
	// is nil for node lookups, which carry ID instead.
	Object    any
	Arguments map[string]any
	ID        *globalid.ID
	Caller    any
}

// Rule decides access for one subject.
type Rule interface {
	Eval(ctx context.Context, subject *Subject) error
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(ctx context.Context, subject *Subject) error

func (f RuleFunc) Eval(ctx context.Context, subject *Subject) error { return f(ctx, subject) }

// Policy is an ordered chain of rules.
type Policy []Rule

// Eval returns nil when access is allowed and the deciding error otherwise.
func (p Policy) Eval(ctx context.Context, subject *Subject) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range p {
		switch decision := rule.Eval(ctx, subject); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// Chain builds a Policy from rules.
func Chain(rules ...Rule) Policy { return Policy(rules) }

// Check runs rule and reports whether access is allowed. A nil rule allows.
func Check(ctx context.Context, rule Rule, subject *Subject) error {
	if rule == nil {
		return nil
	}
	decision := rule.Eval(ctx, subject)
	if decision == nil || errors.Is(decision, Allow) || errors.Is(decision, Skip) {
		return nil
	}
	return decision
}

type decisionCtxKey struct{}

// DecisionContext attaches a decision that overrides every policy evaluated
// with the returned context. Skip and nil leave parent unchanged.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves a decision attached with DecisionContext.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct{ decision error }

func (f fixedDecision) Eval(context.Context, *Subject) error { return f.decision }

// AlwaysAllowRule allows unconditionally.
func AlwaysAllowRule() Rule { return fixedDecision{Allow} }

// AlwaysDenyRule denies unconditionally.
func AlwaysDenyRule() Rule { return fixedDecision{Deny} }

// ContextRule builds a rule from a function of the context alone.
func ContextRule(eval func(context.Context) error) Rule {
	return RuleFunc(func(ctx context.Context, _ *Subject) error { return eval(ctx) })
}
