package authz

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/portalgate/portalgate/internal/portal"
)

const sessionIssuer = "portalgate"

// SessionManager issues and validates short-lived signed session tokens.
// A successful authorization mints one so subsequent SPA requests don't
// re-run the full credential/identity/allow-list chain on every asset
// fetch. Sessions carry the resolved principal, not the portal credential —
// the bearer token never leaves the server once the chain has run.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionManager creates a manager with an HMAC-SHA256 secret.
func NewSessionManager(secret string, ttl time.Duration) (*SessionManager, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl}, nil
}

type sessionClaims struct {
	Name        string  `json:"name,omitempty"`
	Email       string  `json:"email,omitempty"`
	Admin       bool    `json:"adm"`
	Source      string  `json:"src"`
	Departments []int64 `json:"deps,omitempty"`
	jwt.RegisteredClaims
}

// Issue mints a session token for the resolved principal.
func (m *SessionManager) Issue(p *Principal) (string, error) {
	if p == nil || p.Identity == nil {
		return "", errors.New("cannot issue a session without an identity")
	}
	now := time.Now()
	claims := sessionClaims{
		Name:        p.Identity.Name,
		Email:       p.Identity.Email,
		Admin:       p.IsAdmin,
		Source:      string(p.Source),
		Departments: p.Identity.Departments,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   fmt.Sprintf("%d", p.Identity.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a session token, reconstructing the
// principal it was issued for.
func (m *SessionManager) Validate(tokenString string) (*Principal, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil || userID <= 0 {
		return nil, errors.New("session token has no usable subject")
	}

	return &Principal{
		Identity: &portal.Identity{
			ID:          userID,
			Name:        claims.Name,
			Email:       claims.Email,
			Departments: claims.Departments,
		},
		IsAdmin: claims.Admin,
		Source:  CredentialSource(claims.Source),
	}, nil
}
