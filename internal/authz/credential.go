package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/portalgate/portalgate/internal/portal"
	"github.com/portalgate/portalgate/internal/store"
)

// CredentialSource identifies whose credential the request will act as.
type CredentialSource string

const (
	// SourceEmbedded: the host portal supplied a member-session token with
	// the request.
	SourceEmbedded CredentialSource = "embedded_user"
	// SourceInstallerCached: the persisted installer credential plus the
	// cached administrator profile captured at install time.
	SourceInstallerCached CredentialSource = "installer_cached"
	// SourceInstallerDirect: the installer credential alone. The platform
	// does not allow identity lookups with it, so the request stays
	// unauthenticated even though portal calls are possible.
	SourceInstallerDirect CredentialSource = "installer_direct"
	// SourceNone: no credential; the request proceeds anonymously where
	// the mode permits it.
	SourceNone CredentialSource = "none"
)

// EmbeddedCredential is the member-session credential the host portal
// passes as explicit request parameters when the app renders embedded.
type EmbeddedCredential struct {
	Token  string
	Domain string
}

// Present reports whether the host supplied a usable embedded credential.
func (e EmbeddedCredential) Present() bool {
	return e.Token != "" && e.Domain != ""
}

// Chain failure modes. The orchestrator maps each to a deny-redirect with
// a distinct reason code.
var (
	// ErrEmbeddedRequired: host-only mode and the request carries no
	// embedded credential. No fallback is attempted.
	ErrEmbeddedRequired = errors.New("embedded credential required in host-only mode")
	// ErrEmbeddedBlocked: external-only mode received an embedded
	// credential anyway. The administrator explicitly required the
	// non-embedded path, so this is a blocked condition, not a fallback.
	ErrEmbeddedBlocked = errors.New("embedded credentials are blocked in external-only mode")
	// ErrNotInstalled: external-only mode with no persisted installer
	// credential to act as.
	ErrNotInstalled = errors.New("no installer credential persisted")
)

// Resolution is the outcome of the credential chain: which credential to
// trust (nil for anonymous) and whose identity it represents.
type Resolution struct {
	Credential *portal.Credential
	Source     CredentialSource
	// Profile is the cached installer admin profile; set only for
	// SourceInstallerCached.
	Profile *store.AdminProfile
}

// SettingsReader is the slice of the config store the chain needs.
type SettingsReader interface {
	ReadInstallerSettings(ctx context.Context) (*store.InstallerSettings, error)
}

// CredentialResolver decides which credential subsequent calls should use.
// Deterministic and side-effect-free apart from settings reads; it performs
// no remote identity calls — the orchestrator does that once a credential
// is chosen.
type CredentialResolver struct {
	settings SettingsReader
}

// NewCredentialResolver creates the chain over the given settings source.
func NewCredentialResolver(settings SettingsReader) *CredentialResolver {
	return &CredentialResolver{settings: settings}
}

// Resolve runs the mode-specific chain for one request.
func (r *CredentialResolver) Resolve(ctx context.Context, mode Mode, embedded EmbeddedCredential) (Resolution, error) {
	switch mode {
	case ModeHostOnly:
		return r.resolveHostOnly(embedded)
	case ModeEverywhere:
		return r.resolveEverywhere(embedded)
	case ModeExternalOnly:
		return r.resolveExternalOnly(ctx, embedded)
	default:
		return Resolution{}, fmt.Errorf("unhandled access mode %v", mode)
	}
}

func (r *CredentialResolver) resolveHostOnly(embedded EmbeddedCredential) (Resolution, error) {
	if !embedded.Present() {
		return Resolution{}, ErrEmbeddedRequired
	}
	return Resolution{
		Credential: &portal.Credential{Token: embedded.Token, Domain: embedded.Domain},
		Source:     SourceEmbedded,
	}, nil
}

func (r *CredentialResolver) resolveEverywhere(embedded EmbeddedCredential) (Resolution, error) {
	if embedded.Present() {
		return Resolution{
			Credential: &portal.Credential{Token: embedded.Token, Domain: embedded.Domain},
			Source:     SourceEmbedded,
		}, nil
	}
	// External access is permitted without a user identity.
	return Resolution{Source: SourceNone}, nil
}

func (r *CredentialResolver) resolveExternalOnly(ctx context.Context, embedded EmbeddedCredential) (Resolution, error) {
	if embedded.Present() {
		return Resolution{}, ErrEmbeddedBlocked
	}

	settings, err := r.settings.ReadInstallerSettings(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("read installer settings: %w", err)
	}
	if !settings.Installed() {
		return Resolution{}, ErrNotInstalled
	}

	cred := *settings.Credential
	if cred.Domain == "" {
		cred.Domain = settings.Domain
	}

	if settings.AdminProfile != nil {
		return Resolution{
			Credential: &cred,
			Source:     SourceInstallerCached,
			Profile:    settings.AdminProfile,
		}, nil
	}
	// The installer credential cannot resolve its own identity against the
	// platform, so without a cached profile the request stays anonymous
	// but externally allowed.
	return Resolution{Credential: &cred, Source: SourceInstallerDirect}, nil
}
