package policy

import (
	"context"
	"slices"
)

// Viewer is the caller a request runs on behalf of.
type Viewer interface {
	GetID() string
	GetRoles() []string
}

type viewerCtxKey struct{}

// WithViewer returns a context carrying viewer.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext returns the viewer, or nil.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic Viewer, mostly for tests.
type SimpleViewer struct {
	UserID string
	Roles  []string
}

func (v *SimpleViewer) GetID() string      { return v.UserID }
func (v *SimpleViewer) GetRoles() []string { return v.Roles }

// DenyIfNoViewer denies when the context has no viewer and skips otherwise.
func DenyIfNoViewer() Rule {
	return ContextRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("policy: viewer required")
		}
		return Skip
	})
}

// HasRole allows viewers holding role.
func HasRole(role string) Rule {
	return HasAnyRole(role)
}

// HasAnyRole allows viewers holding any of roles.
func HasAnyRole(roles ...string) Rule {
	return ContextRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		for _, role := range roles {
			if slices.Contains(viewer.GetRoles(), role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner allows when owner returns the viewer's ID for the subject.
func IsOwner(owner func(*Subject) string) Rule {
	return RuleFunc(func(ctx context.Context, s *Subject) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		if owner(s) == viewer.GetID() {
			return Allow
		}
		return Skip
	})
}
