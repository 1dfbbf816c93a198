package store

import (
	"context"
	"time"

	"github.com/portalgate/portalgate/internal/portal"
)

// Stamp records which administrator performed a change.
type Stamp struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DepartmentEntry is one allowed department in the access list.
type DepartmentEntry struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"added_at"`
	AddedBy Stamp     `json:"added_by"`
}

// UserEntry is one allowed user in the access list.
type UserEntry struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email,omitempty"`
	AddedAt time.Time `json:"added_at"`
	AddedBy Stamp     `json:"added_by"`
}

// AllowList is the persisted access-control document. enabled=false
// short-circuits all other fields. IDs within each set are unique.
type AllowList struct {
	Enabled     bool              `json:"enabled"`
	Departments []DepartmentEntry `json:"departments"`
	Users       []UserEntry       `json:"users"`
	LastUpdated *time.Time        `json:"last_updated"`
	UpdatedBy   *Stamp            `json:"updated_by"`
}

// DefaultAllowList is the document substituted when nothing is persisted
// yet (or the stored body is unreadable): enabled with no rules. Note that
// an enabled-but-empty list denies all non-admins — the safe default gates
// access to administrators until rules are configured.
func DefaultAllowList() *AllowList {
	return &AllowList{Enabled: true, Departments: []DepartmentEntry{}, Users: []UserEntry{}}
}

// HasDepartment reports whether id is in the departments set.
func (a *AllowList) HasDepartment(id int64) bool {
	for _, d := range a.Departments {
		if d.ID == id {
			return true
		}
	}
	return false
}

// HasUser reports whether id is in the users set.
func (a *AllowList) HasUser(id int64) bool {
	for _, u := range a.Users {
		if u.ID == id {
			return true
		}
	}
	return false
}

// Touch re-stamps the document after a mutation.
func (a *AllowList) Touch(by Stamp, now time.Time) {
	a.LastUpdated = &now
	a.UpdatedBy = &by
}

// Clone returns a deep copy safe to hand to callers of a cached read.
func (a *AllowList) Clone() *AllowList {
	cp := *a
	cp.Departments = append([]DepartmentEntry(nil), a.Departments...)
	cp.Users = append([]UserEntry(nil), a.Users...)
	if a.LastUpdated != nil {
		t := *a.LastUpdated
		cp.LastUpdated = &t
	}
	if a.UpdatedBy != nil {
		s := *a.UpdatedBy
		cp.UpdatedBy = &s
	}
	return &cp
}

// AdminProfile is the administrator snapshot captured at installation time,
// used as the acting identity in external-only mode.
type AdminProfile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// InstallerSettings is the persisted installation document: the installer
// credential, the portal domain, and optionally the installing admin's
// profile snapshot.
type InstallerSettings struct {
	Credential   *portal.Credential `json:"credential,omitempty"`
	Domain       string             `json:"domain,omitempty"`
	AdminProfile *AdminProfile      `json:"admin_profile,omitempty"`
	InstalledAt  *time.Time         `json:"installed_at,omitempty"`
}

// Installed reports whether an installer credential has been captured.
func (s *InstallerSettings) Installed() bool {
	return s != nil && s.Credential != nil && s.Credential.Token != ""
}

// Store is the persistence interface for the two configuration documents.
// Reads substitute safe defaults on missing/corrupt data; writes always
// surface failures.
type Store interface {
	Close() error

	// ReadAllowList never fails on missing or corrupt documents — it
	// returns DefaultAllowList instead (fail-open for reads only).
	ReadAllowList(ctx context.Context) (*AllowList, error)
	// WriteAllowList atomically replaces the whole document.
	WriteAllowList(ctx context.Context, doc *AllowList) error
	// MutateAllowList runs fn inside an exclusive read-modify-write and
	// persists the result. Concurrent mutations are serialized per
	// document so no update is lost. fn returning an error aborts the
	// write and is returned verbatim.
	MutateAllowList(ctx context.Context, fn func(*AllowList) error) (*AllowList, error)

	ReadInstallerSettings(ctx context.Context) (*InstallerSettings, error)
	WriteInstallerSettings(ctx context.Context, s *InstallerSettings) error
}
