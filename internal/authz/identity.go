package authz

import (
	"context"

	"github.com/portalgate/portalgate/internal/portal"
)

// Principal is the resolved actor for a request: the portal identity (nil
// for anonymous degraded access) plus the admin verdict and the credential
// source that produced it.
type Principal struct {
	Identity *portal.Identity
	IsAdmin  bool
	Source   CredentialSource
}

// DisplayName returns the principal's name, or "anonymous".
func (p *Principal) DisplayName() string {
	if p == nil || p.Identity == nil {
		return "anonymous"
	}
	return p.Identity.Name
}

// UserID returns the principal's portal user ID, or 0.
func (p *Principal) UserID() int64 {
	if p == nil || p.Identity == nil {
		return 0
	}
	return p.Identity.ID
}

type contextKey struct{}

// WithPrincipal stores a Principal in the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFromContext retrieves the Principal from the context.
// Returns nil if no principal is set.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextKey{}).(*Principal)
	return p
}
