package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/portalgate/portalgate/internal/audit"
	"github.com/portalgate/portalgate/internal/portal"
	"github.com/portalgate/portalgate/internal/store"
)

// registerInstall registers the installation callback the portal invokes
// when the app is added to a workspace. The supplied credential becomes
// the persisted installer credential; when the portal allows an identity
// lookup with it, the installing admin's profile is cached alongside for
// external-only mode.
func (s *Server) registerInstall(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "install",
		Method:      http.MethodPost,
		Path:        "/api/install",
		Tags:        []string{"Install"},
	}, func(ctx context.Context, input *InstallInput) (*InstallOutput, error) {
		if input.Body.AccessToken == "" || input.Body.Domain == "" {
			return nil, huma.NewError(http.StatusBadRequest, "accessToken and domain are required")
		}

		existing, err := s.store.ReadInstallerSettings(ctx)
		if err != nil {
			return nil, huma.NewError(http.StatusInternalServerError, "settings unavailable")
		}

		cred := portal.Credential{
			Token:        input.Body.AccessToken,
			RefreshToken: input.Body.RefreshToken,
			Domain:       input.Body.Domain,
		}
		if input.Body.ExpiresIn > 0 {
			cred.ExpiresAt = time.Now().Add(time.Duration(input.Body.ExpiresIn) * time.Second)
		}

		settings := &store.InstallerSettings{
			Credential: &cred,
			Domain:     input.Body.Domain,
		}
		now := time.Now().UTC()
		settings.InstalledAt = &now

		out := &InstallOutput{}

		// Snapshot the installing admin when the platform lets us. Some
		// installer credentials cannot resolve an identity; installation
		// still succeeds, external-only mode just runs without a cached
		// profile.
		identity, err := s.directory.CurrentIdentity(ctx, cred)
		switch {
		case err != nil:
			// An unverifiable credential may complete a first install (some
			// installer credentials cannot resolve an identity at all), but
			// it must never replace a working installation: that would let
			// an anonymous caller overwrite the stored credential and cached
			// admin profile.
			if existing.Installed() {
				audit.Event{
					RequestID: requestIDFrom(ctx),
					Action:    "install",
					Status:    "denied",
					Reason:    "credential_unverifiable",
					Resource:  input.Body.Domain,
				}.Warn("Audit Log: Install Denied")
				return nil, huma.NewError(http.StatusForbidden, "an installation already exists; replacing it requires a credential the portal verifies as an administrator")
			}
			slog.Warn("installer identity lookup failed, installing without cached profile",
				slog.String("domain", input.Body.Domain),
				slog.String("error", err.Error()),
			)
		case s.admin.IsAdmin(ctx, identity, cred):
			settings.AdminProfile = &store.AdminProfile{
				ID:    identity.ID,
				Name:  identity.Name,
				Email: identity.Email,
			}
			out.Body.AdminID = identity.ID
			out.Body.AdminName = identity.Name
			out.Body.ProfileCached = true
		default:
			// Only administrators may install, and only an admin profile
			// may be cached as the external-only acting identity.
			audit.Event{
				RequestID: requestIDFrom(ctx),
				Actor:     identity.Name,
				UserID:    identity.ID,
				Action:    "install",
				Status:    "denied",
				Reason:    "not_admin",
			}.Warn("Audit Log: Install Denied")
			return nil, huma.NewError(http.StatusForbidden, "installation requires a portal administrator")
		}

		if err := s.store.WriteInstallerSettings(ctx, settings); err != nil {
			return nil, huma.NewError(http.StatusInternalServerError, "failed to persist installation: "+err.Error())
		}

		audit.Event{
			RequestID: requestIDFrom(ctx),
			Actor:     out.Body.AdminName,
			UserID:    out.Body.AdminID,
			Action:    "install",
			Status:    "succeeded",
			Resource:  input.Body.Domain,
		}.Info("Audit Log: Installed")

		out.Body.Installed = true
		return out, nil
	})
}
