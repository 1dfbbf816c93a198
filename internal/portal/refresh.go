package portal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Refresher renews portal credentials through the platform's OAuth2 token
// endpoint. Only the installer credential carries a refresh token; embedded
// session credentials are short-lived and replaced by the host on each load.
type Refresher struct {
	clientID     string
	clientSecret string
	tokenURL     string // override for tests; empty = portal-hosted endpoint
}

// NewRefresher creates a refresher for the application's OAuth2 client.
func NewRefresher(clientID, clientSecret string) *Refresher {
	return &Refresher{clientID: clientID, clientSecret: clientSecret}
}

// WithTokenURL overrides the token endpoint (tests only).
func (r *Refresher) WithTokenURL(u string) *Refresher {
	r.tokenURL = u
	return r
}

// Refresh exchanges the credential's refresh token for a new access token.
// The input credential is not mutated; the renewed credential is returned.
func (r *Refresher) Refresh(ctx context.Context, cred Credential) (Credential, error) {
	if cred.RefreshToken == "" {
		return Credential{}, fmt.Errorf("credential for %s has no refresh token", cred.Domain)
	}

	tokenURL := r.tokenURL
	if tokenURL == "" {
		tokenURL = baseURL(cred.Domain) + "/oauth/token/"
	}

	conf := &oauth2.Config{
		ClientID:     r.clientID,
		ClientSecret: r.clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}

	src := conf.TokenSource(ctx, &oauth2.Token{
		RefreshToken: cred.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute), // force the refresh grant
	})
	tok, err := src.Token()
	if err != nil {
		return Credential{}, fmt.Errorf("refresh credential for %s: %w", cred.Domain, err)
	}

	renewed := Credential{
		Token:        tok.AccessToken,
		Domain:       cred.Domain,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if renewed.RefreshToken == "" {
		renewed.RefreshToken = cred.RefreshToken
	}
	return renewed, nil
}
