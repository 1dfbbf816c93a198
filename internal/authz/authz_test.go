package authz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/portalgate/portalgate/internal/portal"
	"github.com/portalgate/portalgate/internal/store"
)

// Shared fakes for the authz package tests.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDirectory is a scriptable portal directory.
type fakeDirectory struct {
	identity    *portal.Identity
	identityErr error
	isAdmin     bool
	adminErr    error

	identityCalls atomic.Int64
	adminCalls    atomic.Int64
}

func (d *fakeDirectory) CurrentIdentity(context.Context, portal.Credential) (*portal.Identity, error) {
	d.identityCalls.Add(1)
	if d.identityErr != nil {
		return nil, d.identityErr
	}
	return d.identity, nil
}

func (d *fakeDirectory) CheckIsAdmin(context.Context, portal.Credential) (bool, error) {
	d.adminCalls.Add(1)
	return d.isAdmin, d.adminErr
}

func (d *fakeDirectory) GetDepartment(context.Context, int64, portal.Credential) (*portal.Department, error) {
	return nil, nil
}

func (d *fakeDirectory) ListDepartments(context.Context, portal.Credential) ([]portal.Department, error) {
	return nil, nil
}

func (d *fakeDirectory) ListUsers(context.Context, portal.Credential, string) ([]portal.DirectoryUser, error) {
	return nil, nil
}

// memStore is an in-memory store.Store for wiring the evaluator in tests.
type memStore struct {
	list     *store.AllowList
	listErr  error
	settings *store.InstallerSettings
	readErr  error
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
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.settings == nil {
		return &store.InstallerSettings{}, nil
	}
	return m.settings, nil
}

func (m *memStore) WriteInstallerSettings(_ context.Context, s *store.InstallerSettings) error {
	m.settings = s
	return nil
}

var errBoom = errors.New("boom")
