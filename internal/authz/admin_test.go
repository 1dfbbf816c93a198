package authz

import (
	"context"
	"testing"

	"github.com/portalgate/portalgate/internal/portal"
)

func TestAdminResolverNilIdentity(t *testing.T) {
	dir := &fakeDirectory{isAdmin: true}
	r := NewAdminResolver(dir, testLogger())

	if r.IsAdmin(context.Background(), nil, portal.Credential{}) {
		t.Error("nil identity must never be admin")
	}
	if dir.adminCalls.Load() != 0 {
		t.Error("nil identity must not trigger a remote check")
	}
}

func TestAdminResolverMarkerTier(t *testing.T) {
	tests := []struct {
		name       string
		marker     any
		want       bool
		wantRemote bool
	}{
		{"Y marker is conclusive", "Y", true, false},
		{"bool marker is conclusive", true, true, false},
		{"numeric marker is conclusive", 1.0, true, false},
		{"N marker falls through to remote", "N", false, true},
		{"absent marker falls through to remote", nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &fakeDirectory{isAdmin: false}
			r := NewAdminResolver(dir, testLogger())
			identity := &portal.Identity{ID: 1, AdminMarker: tt.marker}

			if got := r.IsAdmin(context.Background(), identity, portal.Credential{}); got != tt.want {
				t.Errorf("IsAdmin = %v, want %v", got, tt.want)
			}
			gotRemote := dir.adminCalls.Load() > 0
			if gotRemote != tt.wantRemote {
				t.Errorf("remote check performed = %v, want %v", gotRemote, tt.wantRemote)
			}
		})
	}
}

func TestAdminResolverFlagTier(t *testing.T) {
	dir := &fakeDirectory{}
	r := NewAdminResolver(dir, testLogger())
	identity := &portal.Identity{ID: 1, AdminMarker: "N", IsAdminFlag: "1"}

	if !r.IsAdmin(context.Background(), identity, portal.Credential{}) {
		t.Error("affirmative IS_ADMIN flag should grant admin")
	}
	if dir.adminCalls.Load() != 0 {
		t.Error("flag tier should settle without a remote call")
	}
}

func TestAdminResolverRemoteTier(t *testing.T) {
	dir := &fakeDirectory{isAdmin: true}
	r := NewAdminResolver(dir, testLogger())
	identity := &portal.Identity{ID: 1}

	if !r.IsAdmin(context.Background(), identity, portal.Credential{}) {
		t.Error("remote admin verdict should grant admin")
	}
	if dir.adminCalls.Load() != 1 {
		t.Errorf("adminCalls = %d, want 1", dir.adminCalls.Load())
	}
}

func TestAdminResolverRemoteFailureIsFailClosed(t *testing.T) {
	dir := &fakeDirectory{adminErr: errBoom}
	r := NewAdminResolver(dir, testLogger())
	identity := &portal.Identity{ID: 1}

	if r.IsAdmin(context.Background(), identity, portal.Credential{}) {
		t.Error("a failed remote check must resolve to non-admin")
	}
}
