package authz

import (
	"context"
	"log/slog"

	"github.com/portalgate/portalgate/internal/portal"
)

// adminStrategy is one tier of the admin check. It returns its verdict and
// whether that verdict is conclusive; an inconclusive result falls through
// to the next tier. No tier may return a conclusive true without a
// positive, explicit signal.
type adminStrategy func(ctx context.Context, identity *portal.Identity, cred portal.Credential) (verdict, conclusive bool)

// AdminResolver determines administrator status through an ordered tier
// list: the identity's raw admin marker, the alternate is-admin flag, and
// finally a remote user.admin call. Ambiguity and remote failures resolve
// to false (fail-closed).
type AdminResolver struct {
	directory portal.Directory
	tiers     []adminStrategy
	logger    *slog.Logger
}

// NewAdminResolver creates the resolver over the given directory client.
func NewAdminResolver(directory portal.Directory, logger *slog.Logger) *AdminResolver {
	r := &AdminResolver{
		directory: directory,
		logger:    logger.With(slog.String("component", "admin_resolver")),
	}
	r.tiers = []adminStrategy{
		r.markerTier,
		r.flagTier,
		r.remoteTier,
	}
	return r
}

// IsAdmin reports whether the identity is a portal administrator.
// A nil identity is never an admin.
func (r *AdminResolver) IsAdmin(ctx context.Context, identity *portal.Identity, cred portal.Credential) bool {
	if identity == nil {
		return false
	}
	for _, tier := range r.tiers {
		if verdict, conclusive := tier(ctx, identity, cred); conclusive {
			return verdict
		}
	}
	return false
}

// markerTier inspects the raw "ADMIN" marker on the identity. Only an
// affirmative value is conclusive; absence or a negative value falls
// through rather than concluding "not admin".
func (r *AdminResolver) markerTier(_ context.Context, identity *portal.Identity, _ portal.Credential) (bool, bool) {
	if portal.Affirmative(identity.AdminMarker) {
		return true, true
	}
	return false, false
}

// flagTier inspects the alternate "IS_ADMIN" flag.
func (r *AdminResolver) flagTier(_ context.Context, identity *portal.Identity, _ portal.Credential) (bool, bool) {
	if portal.Affirmative(identity.IsAdminFlag) {
		return true, true
	}
	return false, false
}

// remoteTier asks the portal directly. Transport or API errors resolve
// conclusively to false: a broken check must never grant admin.
func (r *AdminResolver) remoteTier(ctx context.Context, identity *portal.Identity, cred portal.Credential) (bool, bool) {
	isAdmin, err := r.directory.CheckIsAdmin(ctx, cred)
	if err != nil {
		r.logger.Warn("remote admin check failed, resolving to non-admin",
			slog.Int64("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
		return false, true
	}
	return isAdmin, true
}
