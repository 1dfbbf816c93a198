package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/portalgate/portalgate/internal/audit"
	"github.com/portalgate/portalgate/internal/gate"
	"github.com/portalgate/portalgate/internal/portal"
)

// Outcome is a terminal state of the authorization state machine.
type Outcome string

const (
	// OutcomeAllow: authenticated and admitted.
	OutcomeAllow Outcome = "allow"
	// OutcomeAllowDegraded: admitted without an identity (anonymous
	// external access, or an installer credential with no cached profile).
	OutcomeAllowDegraded Outcome = "allow-degraded"
	// OutcomeDenyRedirect: refused; the caller must route to the access
	// denied surface.
	OutcomeDenyRedirect Outcome = "deny-redirect"
)

// Orchestrator-level denial reasons. Evaluator reasons (gate.Reason) pass
// through unchanged.
const (
	ReasonEmbeddedRequired    = "embedded_credential_required"
	ReasonEmbeddedBlocked     = "embedded_blocked"
	ReasonNotInstalled        = "not_installed"
	ReasonSettingsUnavailable = "settings_unavailable"
)

// Decision is the orchestrator's output: computed per request, never
// persisted, always audited.
type Decision struct {
	Outcome       Outcome
	Mode          Mode
	Source        CredentialSource
	Authenticated bool
	Principal     *Principal // nil for anonymous outcomes
	AccessGranted bool
	Reason        string // grant or denial reason code, "" for plain allows
}

// Allowed reports whether the request may proceed (possibly degraded).
func (d Decision) Allowed() bool {
	return d.Outcome != OutcomeDenyRedirect
}

// Orchestrator composes the mode resolver, credential chain, directory
// client, admin resolver and allow-list evaluator into the single
// authorize() call every protected entry point invokes.
type Orchestrator struct {
	mode      Mode
	creds     *CredentialResolver
	directory portal.Directory
	admin     *AdminResolver
	gate      *gate.Evaluator
	logger    *slog.Logger
}

// NewOrchestrator wires the engine for a fixed access mode (mode is static
// configuration; it never changes within a process lifetime).
func NewOrchestrator(mode Mode, creds *CredentialResolver, directory portal.Directory, admin *AdminResolver, evaluator *gate.Evaluator, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		mode:      mode,
		creds:     creds,
		directory: directory,
		admin:     admin,
		gate:      evaluator,
		logger:    logger.With(slog.String("component", "authz")),
	}
}

// Mode returns the configured access mode.
func (o *Orchestrator) Mode() Mode { return o.mode }

// Request carries the authorization-relevant slice of an inbound request.
type Request struct {
	Embedded  EmbeddedCredential
	RequestID string
	IP        string
}

// Authorize runs the end-to-end decision for one request.
func (o *Orchestrator) Authorize(ctx context.Context, req Request) Decision {
	resolution, err := o.creds.Resolve(ctx, o.mode, req.Embedded)
	if err != nil {
		return o.finish(req, o.credentialFailure(err))
	}

	switch resolution.Source {
	case SourceNone:
		// Anonymous external access is permitted in this mode.
		return o.finish(req, Decision{
			Outcome: OutcomeAllowDegraded,
			Mode:    o.mode,
			Source:  SourceNone,
		})

	case SourceInstallerCached:
		// The installer credential's owner completed installation and is
		// unconditionally an administrator in external-only mode.
		principal := &Principal{
			Identity: &portal.Identity{
				ID:    resolution.Profile.ID,
				Name:  resolution.Profile.Name,
				Email: resolution.Profile.Email,
			},
			IsAdmin: true,
			Source:  SourceInstallerCached,
		}
		return o.finish(req, Decision{
			Outcome:       OutcomeAllow,
			Mode:          o.mode,
			Source:        SourceInstallerCached,
			Authenticated: true,
			Principal:     principal,
			AccessGranted: true,
			Reason:        string(gate.ReasonAdmin),
		})

	case SourceInstallerDirect:
		// Known platform restriction: the installer credential cannot
		// resolve its own identity, so the request stays anonymous but
		// externally allowed.
		return o.finish(req, Decision{
			Outcome: OutcomeAllowDegraded,
			Mode:    o.mode,
			Source:  SourceInstallerDirect,
		})

	case SourceEmbedded:
		return o.finish(req, o.authorizeEmbedded(ctx, *resolution.Credential))

	default:
		o.logger.Error("credential chain produced unknown source", slog.String("source", string(resolution.Source)))
		return o.finish(req, Decision{
			Outcome: OutcomeDenyRedirect,
			Mode:    o.mode,
			Source:  resolution.Source,
			Reason:  ReasonSettingsUnavailable,
		})
	}
}

func (o *Orchestrator) credentialFailure(err error) Decision {
	dec := Decision{Outcome: OutcomeDenyRedirect, Mode: o.mode, Source: SourceNone}
	switch {
	case errors.Is(err, ErrEmbeddedRequired):
		dec.Reason = ReasonEmbeddedRequired
	case errors.Is(err, ErrEmbeddedBlocked):
		dec.Reason = ReasonEmbeddedBlocked
	case errors.Is(err, ErrNotInstalled):
		dec.Reason = ReasonNotInstalled
	default:
		o.logger.Error("credential resolution failed", slog.String("error", err.Error()))
		dec.Reason = ReasonSettingsUnavailable
	}
	return dec
}

// authorizeEmbedded handles the embedded-credential path: identity lookup,
// admin resolution, then the allow-list for non-admins.
func (o *Orchestrator) authorizeEmbedded(ctx context.Context, cred portal.Credential) Decision {
	identity, err := o.directory.CurrentIdentity(ctx, cred)
	if err != nil {
		reason := string(gate.ReasonIdentityUnresolvable)
		if portal.IsInvalidCredential(err) {
			reason = string(gate.ReasonCredentialInvalid)
		}
		if o.mode == ModeHostOnly {
			// No fallback exists in host-only mode.
			return Decision{
				Outcome: OutcomeDenyRedirect,
				Mode:    o.mode,
				Source:  SourceEmbedded,
				Reason:  reason,
			}
		}
		// External access is still permitted without a user identity.
		o.logger.Warn("identity lookup failed, degrading to unauthenticated",
			slog.String("mode", o.mode.String()),
			slog.String("error", err.Error()),
		)
		return Decision{
			Outcome: OutcomeAllowDegraded,
			Mode:    o.mode,
			Source:  SourceNone,
			Reason:  reason,
		}
	}

	principal := &Principal{Identity: identity, Source: SourceEmbedded}

	if o.admin.IsAdmin(ctx, identity, cred) {
		principal.IsAdmin = true
		return Decision{
			Outcome:       OutcomeAllow,
			Mode:          o.mode,
			Source:        SourceEmbedded,
			Authenticated: true,
			Principal:     principal,
			AccessGranted: true,
			Reason:        string(gate.ReasonAdmin),
		}
	}

	result := o.gate.CheckAccess(ctx, cred, identity.ID, identity.Departments)
	if !result.Granted {
		return Decision{
			Outcome:       OutcomeDenyRedirect,
			Mode:          o.mode,
			Source:        SourceEmbedded,
			Authenticated: true,
			Principal:     principal,
			Reason:        string(result.Reason),
		}
	}
	return Decision{
		Outcome:       OutcomeAllow,
		Mode:          o.mode,
		Source:        SourceEmbedded,
		Authenticated: true,
		Principal:     principal,
		AccessGranted: true,
		Reason:        string(result.Reason),
	}
}

// finish audits the terminal transition and returns the decision.
func (o *Orchestrator) finish(req Request, dec Decision) Decision {
	ev := audit.Event{
		RequestID: req.RequestID,
		Actor:     dec.Principal.DisplayName(),
		UserID:    dec.Principal.UserID(),
		Action:    "authorize",
		Mode:      dec.Mode.String(),
		Source:    string(dec.Source),
		Reason:    dec.Reason,
		IP:        req.IP,
	}
	switch dec.Outcome {
	case OutcomeAllow:
		ev.Status = "allow"
		ev.Info("Audit Log: Authorization")
	case OutcomeAllowDegraded:
		ev.Status = "allow_degraded"
		ev.Info("Audit Log: Authorization (degraded)")
	case OutcomeDenyRedirect:
		ev.Status = "deny"
		ev.Warn("Audit Log: Authorization Denied")
	}
	return dec
}
