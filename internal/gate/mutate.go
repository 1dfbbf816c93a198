package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/portalgate/portalgate/internal/audit"
	"github.com/portalgate/portalgate/internal/store"
)

const (
	maxNameLen  = 200
	maxEmailLen = 254
)

// FieldError describes one invalid mutation input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries per-field messages for a rejected mutation.
// Validation always happens before any store write.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// DuplicateError reports an add of an already-listed id.
type DuplicateError struct {
	Kind string // "department" or "user"
	ID   int64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %d is already in the allow-list", e.Kind, e.ID)
}

func validateEntry(id int64, name string) *ValidationError {
	var fields []FieldError
	if id <= 0 {
		fields = append(fields, FieldError{Field: "id", Message: "must be a positive integer"})
	}
	if strings.TrimSpace(name) == "" {
		fields = append(fields, FieldError{Field: "name", Message: "is required"})
	} else if len(name) > maxNameLen {
		fields = append(fields, FieldError{Field: "name", Message: fmt.Sprintf("too long (max %d characters)", maxNameLen)})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateEmail(email string) *ValidationError {
	if email == "" {
		return nil
	}
	var fields []FieldError
	if len(email) > maxEmailLen {
		fields = append(fields, FieldError{Field: "email", Message: fmt.Sprintf("too long (max %d characters)", maxEmailLen)})
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		fields = append(fields, FieldError{Field: "email", Message: "is not a valid address"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// AddDepartment appends a department to the allow-list. Fails on invalid
// input or a duplicate id; the timestamp is server-generated.
func (e *Evaluator) AddDepartment(ctx context.Context, id int64, name string, by store.Stamp) error {
	if verr := validateEntry(id, name); verr != nil {
		return verr
	}

	_, err := e.store.MutateAllowList(ctx, func(list *store.AllowList) error {
		if list.HasDepartment(id) {
			return &DuplicateError{Kind: "department", ID: id}
		}
		now := time.Now().UTC()
		list.Departments = append(list.Departments, store.DepartmentEntry{
			ID:      id,
			Name:    name,
			AddedAt: now,
			AddedBy: by,
		})
		list.Touch(by, now)
		return nil
	})
	e.auditMutation("allowlist_add_department", resourceID("department", id), by, err)
	return err
}

// RemoveDepartment filters a department out of the allow-list. Idempotent:
// removing an absent id succeeds as long as the write does.
func (e *Evaluator) RemoveDepartment(ctx context.Context, id int64, by store.Stamp) error {
	_, err := e.store.MutateAllowList(ctx, func(list *store.AllowList) error {
		kept := list.Departments[:0]
		for _, d := range list.Departments {
			if d.ID != id {
				kept = append(kept, d)
			}
		}
		list.Departments = kept
		list.Touch(by, time.Now().UTC())
		return nil
	})
	e.auditMutation("allowlist_remove_department", resourceID("department", id), by, err)
	return err
}

// AddUser appends a user to the allow-list, with the same duplicate and
// validation rules as departments plus an email format check.
func (e *Evaluator) AddUser(ctx context.Context, id int64, name, email string, by store.Stamp) error {
	if verr := validateEntry(id, name); verr != nil {
		return verr
	}
	if verr := validateEmail(email); verr != nil {
		return verr
	}

	_, err := e.store.MutateAllowList(ctx, func(list *store.AllowList) error {
		if list.HasUser(id) {
			return &DuplicateError{Kind: "user", ID: id}
		}
		now := time.Now().UTC()
		list.Users = append(list.Users, store.UserEntry{
			ID:      id,
			Name:    name,
			Email:   email,
			AddedAt: now,
			AddedBy: by,
		})
		list.Touch(by, now)
		return nil
	})
	e.auditMutation("allowlist_add_user", resourceID("user", id), by, err)
	return err
}

// RemoveUser filters a user out of the allow-list. Idempotent like
// RemoveDepartment.
func (e *Evaluator) RemoveUser(ctx context.Context, id int64, by store.Stamp) error {
	_, err := e.store.MutateAllowList(ctx, func(list *store.AllowList) error {
		kept := list.Users[:0]
		for _, u := range list.Users {
			if u.ID != id {
				kept = append(kept, u)
			}
		}
		list.Users = kept
		list.Touch(by, time.Now().UTC())
		return nil
	})
	e.auditMutation("allowlist_remove_user", resourceID("user", id), by, err)
	return err
}

// SetEnabled unconditionally overwrites the gate flag.
func (e *Evaluator) SetEnabled(ctx context.Context, enabled bool, by store.Stamp) error {
	_, err := e.store.MutateAllowList(ctx, func(list *store.AllowList) error {
		list.Enabled = enabled
		list.Touch(by, time.Now().UTC())
		return nil
	})
	e.auditMutation("allowlist_set_enabled", fmt.Sprintf("enabled/%t", enabled), by, err)
	return err
}

// ReadAllowList exposes the current document for the management screen.
func (e *Evaluator) ReadAllowList(ctx context.Context) (*store.AllowList, error) {
	return e.store.ReadAllowList(ctx)
}

func (e *Evaluator) auditMutation(action, resource string, by store.Stamp, err error) {
	ev := audit.Event{
		Actor:    by.Name,
		UserID:   by.ID,
		Action:   action,
		Status:   "succeeded",
		Resource: resource,
	}
	if err != nil {
		ev.Status = "failed"
		ev.Reason = err.Error()
		ev.Warn("Audit Log: Allow-List Mutation Failed")
		return
	}
	ev.Info("Audit Log: Allow-List Mutation")
}
