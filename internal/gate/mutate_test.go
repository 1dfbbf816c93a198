package gate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/portalgate/portalgate/internal/store"
)

var testStamp = store.Stamp{ID: 1, Name: "Admin"}

func newMutationEvaluator(list *store.AllowList) (*Evaluator, *memStore) {
	st := &memStore{list: list}
	e := NewEvaluator(&fakeDirectory{}, st, fixedAdmin(false), testLogger())
	return e, st
}

func TestAddDepartment(t *testing.T) {
	e, st := newMutationEvaluator(nil)

	if err := e.AddDepartment(context.Background(), 3, "Engineering", testStamp); err != nil {
		t.Fatalf("AddDepartment: %v", err)
	}

	list, _ := st.ReadAllowList(context.Background())
	if !list.HasDepartment(3) {
		t.Error("department 3 should be listed")
	}
	if list.LastUpdated == nil || list.UpdatedBy == nil || list.UpdatedBy.ID != 1 {
		t.Error("mutation should re-stamp the document")
	}
}

func TestAddDepartmentDuplicate(t *testing.T) {
	e, st := newMutationEvaluator(listWith(true, []int64{3}, nil))

	err := e.AddDepartment(context.Background(), 3, "Engineering", testStamp)

	var derr *DuplicateError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v, want *DuplicateError", err)
	}
	if derr.Kind != "department" || derr.ID != 3 {
		t.Errorf("DuplicateError = %+v", derr)
	}

	list, _ := st.ReadAllowList(context.Background())
	if len(list.Departments) != 1 {
		t.Errorf("list length = %d, the failed add must not change it", len(list.Departments))
	}
}

func TestAddDepartmentValidation(t *testing.T) {
	e, _ := newMutationEvaluator(nil)

	tests := []struct {
		name      string
		id        int64
		depName   string
		wantField string
	}{
		{"zero id", 0, "Engineering", "id"},
		{"negative id", -1, "Engineering", "id"},
		{"empty name", 3, "", "name"},
		{"whitespace name", 3, "   ", "name"},
		{"name too long", 3, strings.Repeat("x", 201), "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.AddDepartment(context.Background(), tt.id, tt.depName, testStamp)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			found := false
			for _, f := range verr.Fields {
				if f.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("fields = %+v, want a message for %q", verr.Fields, tt.wantField)
			}
		})
	}
}

func TestRemoveDepartmentIdempotent(t *testing.T) {
	e, st := newMutationEvaluator(listWith(true, []int64{3}, nil))

	if err := e.RemoveDepartment(context.Background(), 3, testStamp); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if err := e.RemoveDepartment(context.Background(), 3, testStamp); err != nil {
		t.Fatalf("second remove should succeed: %v", err)
	}

	list, _ := st.ReadAllowList(context.Background())
	if list.HasDepartment(3) {
		t.Error("department 3 should be gone")
	}
}

func TestAddUser(t *testing.T) {
	e, st := newMutationEvaluator(nil)

	if err := e.AddUser(context.Background(), 9, "Bob", "bob@acme.example", testStamp); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	list, _ := st.ReadAllowList(context.Background())
	if !list.HasUser(9) {
		t.Error("user 9 should be listed")
	}
}

func TestAddUserEmailValidation(t *testing.T) {
	e, _ := newMutationEvaluator(nil)

	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"empty email is fine", "", false},
		{"valid", "bob@acme.example", false},
		{"no at sign", "bob.acme.example", true},
		{"at sign first", "@acme.example", true},
		{"at sign last", "bob@", true},
		{"too long", strings.Repeat("x", 250) + "@a.example", true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.AddUser(context.Background(), int64(100+i), "Bob", tt.email, testStamp)
			var verr *ValidationError
			isValidation := errors.As(err, &verr)
			if tt.wantErr && !isValidation {
				t.Errorf("err = %v, want *ValidationError", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAddUserDuplicate(t *testing.T) {
	e, _ := newMutationEvaluator(listWith(true, nil, []int64{9}))

	err := e.AddUser(context.Background(), 9, "Bob", "", testStamp)

	var derr *DuplicateError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v, want *DuplicateError", err)
	}
	if derr.Kind != "user" {
		t.Errorf("Kind = %q, want user", derr.Kind)
	}
}

func TestRemoveUserIdempotent(t *testing.T) {
	e, st := newMutationEvaluator(listWith(true, nil, []int64{9}))

	if err := e.RemoveUser(context.Background(), 9, testStamp); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if err := e.RemoveUser(context.Background(), 9, testStamp); err != nil {
		t.Fatalf("second remove should succeed: %v", err)
	}

	list, _ := st.ReadAllowList(context.Background())
	if list.HasUser(9) {
		t.Error("user 9 should be gone")
	}
}

func TestSetEnabled(t *testing.T) {
	e, st := newMutationEvaluator(listWith(true, nil, nil))

	if err := e.SetEnabled(context.Background(), false, testStamp); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	list, _ := st.ReadAllowList(context.Background())
	if list.Enabled {
		t.Error("gate should be disabled")
	}
	if list.UpdatedBy == nil || list.UpdatedBy.Name != "Admin" {
		t.Error("toggle should re-stamp the document")
	}
}

func TestMutationStoreFailureSurfaces(t *testing.T) {
	st := &memStore{listErr: errBoom}
	e := NewEvaluator(&fakeDirectory{}, st, fixedAdmin(false), testLogger())

	if err := e.AddDepartment(context.Background(), 3, "Engineering", testStamp); err == nil {
		t.Error("store failure must surface, never be swallowed")
	}
}
