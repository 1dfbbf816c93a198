package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/portalgate/portalgate/internal/portal"
	"github.com/portalgate/portalgate/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errBoom = errors.New("boom")

// fakeDirectory returns a scripted identity.
type fakeDirectory struct {
	portal.Directory

	identity    *portal.Identity
	identityErr error
}

func (d *fakeDirectory) CurrentIdentity(context.Context, portal.Credential) (*portal.Identity, error) {
	if d.identityErr != nil {
		return nil, d.identityErr
	}
	return d.identity, nil
}

// fixedAdmin is an AdminChecker with a constant verdict.
type fixedAdmin bool

func (a fixedAdmin) IsAdmin(context.Context, *portal.Identity, portal.Credential) bool {
	return bool(a)
}

// memStore holds the allow-list in memory.
type memStore struct {
	list    *store.AllowList
	listErr error
}

func (m *memStore) Close() error { return nil }

func (m *memStore) ReadAllowList(context.Context) (*store.AllowList, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if m.list == nil {
		return store.DefaultAllowList(), nil
	}
	return m.list.Clone(), nil
}

func (m *memStore) WriteAllowList(_ context.Context, doc *store.AllowList) error {
	m.list = doc.Clone()
	return nil
}

func (m *memStore) MutateAllowList(ctx context.Context, fn func(*store.AllowList) error) (*store.AllowList, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	list, err := m.ReadAllowList(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(list); err != nil {
		return nil, err
	}
	m.list = list
	return list.Clone(), nil
}

func (m *memStore) ReadInstallerSettings(context.Context) (*store.InstallerSettings, error) {
	return &store.InstallerSettings{}, nil
}

func (m *memStore) WriteInstallerSettings(context.Context, *store.InstallerSettings) error {
	return nil
}

func listWith(enabled bool, deps []int64, users []int64) *store.AllowList {
	list := &store.AllowList{Enabled: enabled, Departments: []store.DepartmentEntry{}, Users: []store.UserEntry{}}
	for _, id := range deps {
		list.Departments = append(list.Departments, store.DepartmentEntry{ID: id, Name: "dep"})
	}
	for _, id := range users {
		list.Users = append(list.Users, store.UserEntry{ID: id, Name: "user"})
	}
	return list
}

func TestCheckAccess(t *testing.T) {
	member := &portal.Identity{ID: 9, Name: "Bob", Departments: []int64{3}}
	cred := portal.Credential{Token: "t", Domain: "acme.portal.example"}

	tests := []struct {
		name        string
		dir         *fakeDirectory
		admin       fixedAdmin
		list        *store.AllowList
		listErr     error
		wantGranted bool
		wantReason  Reason
	}{
		{
			name:        "identity lookup failure",
			dir:         &fakeDirectory{identityErr: errBoom},
			list:        listWith(true, []int64{3}, nil),
			wantGranted: false,
			wantReason:  ReasonIdentityUnresolvable,
		},
		{
			name:        "invalid credential is distinct",
			dir:         &fakeDirectory{identityErr: &portal.APIError{Code: "invalid_token"}},
			list:        listWith(true, []int64{3}, nil),
			wantGranted: false,
			wantReason:  ReasonCredentialInvalid,
		},
		{
			name:        "admin bypasses the list",
			dir:         &fakeDirectory{identity: member},
			admin:       true,
			list:        listWith(true, nil, nil),
			wantGranted: true,
			wantReason:  ReasonAdmin,
		},
		{
			name:        "admin wins even when the gate is off",
			dir:         &fakeDirectory{identity: member},
			admin:       true,
			list:        listWith(false, nil, nil),
			wantGranted: true,
			wantReason:  ReasonAdmin,
		},
		{
			name:        "disabled gate admits everyone",
			dir:         &fakeDirectory{identity: member},
			list:        listWith(false, nil, nil),
			wantGranted: true,
			wantReason:  ReasonCheckDisabled,
		},
		{
			name:        "enabled empty list fails closed",
			dir:         &fakeDirectory{identity: member},
			list:        listWith(true, nil, nil),
			wantGranted: false,
			wantReason:  ReasonNoRulesConfigured,
		},
		{
			name:        "department match",
			dir:         &fakeDirectory{identity: member},
			list:        listWith(true, []int64{3}, nil),
			wantGranted: true,
			wantReason:  ReasonDepartmentListed,
		},
		{
			name:        "user match",
			dir:         &fakeDirectory{identity: member},
			list:        listWith(true, []int64{999}, []int64{9}),
			wantGranted: true,
			wantReason:  ReasonUserListed,
		},
		{
			name:        "no match",
			dir:         &fakeDirectory{identity: member},
			list:        listWith(true, []int64{999}, []int64{888}),
			wantGranted: false,
			wantReason:  ReasonNotListed,
		},
		{
			name:        "storage failure denies",
			dir:         &fakeDirectory{identity: member},
			listErr:     errBoom,
			wantGranted: false,
			wantReason:  ReasonStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &memStore{list: tt.list, listErr: tt.listErr}
			e := NewEvaluator(tt.dir, st, tt.admin, testLogger())

			result := e.CheckAccess(context.Background(), cred, member.ID, member.Departments)

			if result.Granted != tt.wantGranted {
				t.Errorf("Granted = %v, want %v", result.Granted, tt.wantGranted)
			}
			if result.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", result.Reason, tt.wantReason)
			}
		})
	}
}

func TestCheckAccessDepartmentPrecedesUser(t *testing.T) {
	// A user matched both ways reports the department reason: membership
	// rules are evaluated before individual listings.
	member := &portal.Identity{ID: 9, Name: "Bob", Departments: []int64{3}}
	st := &memStore{list: listWith(true, []int64{3}, []int64{9})}
	e := NewEvaluator(&fakeDirectory{identity: member}, st, fixedAdmin(false), testLogger())

	result := e.CheckAccess(context.Background(), portal.Credential{Token: "t", Domain: "d"}, 9, []int64{3})
	if result.Reason != ReasonDepartmentListed {
		t.Errorf("Reason = %q, want department_listed", result.Reason)
	}
}
