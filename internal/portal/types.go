package portal

import (
	"context"
	"time"
)

// Credential is a bearer token + portal domain pair used to authenticate
// outbound calls to the portal REST API. Credentials are never mutated in
// place — a refresh produces a replacement value.
type Credential struct {
	Token        string
	Domain       string // portal hostname, e.g. "acme.portal.example"
	RefreshToken string
	ExpiresAt    time.Time // zero = unknown
}

// Expired reports whether the credential carries a known, passed expiry.
func (c Credential) Expired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// Identity describes the portal user resolved for the current request.
// The two admin markers are kept raw (string/bool/number, portal-dependent);
// authz normalizes them through Affirmative.
type Identity struct {
	ID          int64
	Name        string
	Email       string
	AdminMarker any     // "ADMIN" field: "Y"/"N"/1/true or absent
	IsAdminFlag any     // "IS_ADMIN" field: alternate boolean-ish marker
	Departments []int64 // department IDs the user belongs to
}

// Department is a portal org-chart unit.
type Department struct {
	ID   int64
	Name string
}

// DirectoryUser is a portal user as returned by list/search calls.
type DirectoryUser struct {
	ID    int64
	Name  string
	Email string
}

// Directory is the read surface of the portal REST API consumed by the
// authorization engine. All methods honor the context deadline and return
// an *APIError for portal-reported failures.
type Directory interface {
	// CurrentIdentity resolves the owner of the credential.
	CurrentIdentity(ctx context.Context, cred Credential) (*Identity, error)
	// CheckIsAdmin asks the portal whether the credential's owner is an
	// administrator. The raw result is boolean-ish and may be list-wrapped.
	CheckIsAdmin(ctx context.Context, cred Credential) (bool, error)
	// GetDepartment fetches a single department, nil if it does not exist.
	GetDepartment(ctx context.Context, id int64, cred Credential) (*Department, error)
	// ListDepartments returns the full org chart.
	ListDepartments(ctx context.Context, cred Credential) ([]Department, error)
	// ListUsers returns active portal users, optionally filtered by a
	// search term matched against name and email.
	ListUsers(ctx context.Context, cred Credential, search string) ([]DirectoryUser, error)
}
