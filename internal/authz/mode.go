package authz

import "fmt"

// Mode classifies where the application is allowed to run and which
// credentials it trusts.
type Mode int

const (
	// ModeHostOnly: the app renders only inside the host portal and
	// authenticates exclusively with embedded-session credentials.
	ModeHostOnly Mode = iota
	// ModeEverywhere: works embedded and standalone; uses host credentials
	// opportunistically when present.
	ModeEverywhere
	// ModeExternalOnly: never trusts host-embedded credentials; always
	// acts as the portal's installer identity.
	ModeExternalOnly
)

func (m Mode) String() string {
	switch m {
	case ModeHostOnly:
		return "host-only"
	case ModeEverywhere:
		return "everywhere"
	case ModeExternalOnly:
		return "external-only"
	default:
		return "host-only"
	}
}

// ParseMode converts a mode name back to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "host-only":
		return ModeHostOnly, nil
	case "everywhere":
		return ModeEverywhere, nil
	case "external-only":
		return ModeExternalOnly, nil
	default:
		return ModeHostOnly, fmt.Errorf("unknown access mode: %q", s)
	}
}

// ResolveMode derives the access mode from the two configuration flags.
// Pure and total: blockHostEmbedding is meaningless unless external access
// is enabled, so externalAccess=false always yields host-only.
func ResolveMode(externalAccess, blockHostEmbedding bool) Mode {
	if !externalAccess {
		return ModeHostOnly
	}
	if blockHostEmbedding {
		return ModeExternalOnly
	}
	return ModeEverywhere
}
