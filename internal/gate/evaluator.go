// Package gate evaluates requests against the persisted allow-list and
// exposes the administrative mutations that maintain it. Evaluation is a
// security control: every invocation emits an audit record, not just a
// return value.
package gate

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/portalgate/portalgate/internal/audit"
	"github.com/portalgate/portalgate/internal/portal"
	"github.com/portalgate/portalgate/internal/store"
)

// Reason is the machine-readable code attached to every access decision.
type Reason string

const (
	// ReasonIdentityUnresolvable: the directory lookup for the presented
	// credential failed, so there is nobody to evaluate.
	ReasonIdentityUnresolvable Reason = "identity_unresolvable"
	// ReasonCredentialInvalid: the portal rejected the credential itself
	// (expired/revoked). Kept distinct from identity_unresolvable so
	// operators can tell "user lacks access" from "credential is broken".
	ReasonCredentialInvalid Reason = "credential_invalid"
	// ReasonAdmin: administrators bypass the list entirely.
	ReasonAdmin Reason = "admin"
	// ReasonCheckDisabled: the enabled flag is off; everyone passes.
	ReasonCheckDisabled Reason = "check_disabled"
	// ReasonNoRulesConfigured: the list is enabled but empty — a
	// deliberate fail-closed default that admits only admins.
	ReasonNoRulesConfigured Reason = "no_rules_configured"
	// ReasonDepartmentListed: one of the user's departments is allowed.
	ReasonDepartmentListed Reason = "department_listed"
	// ReasonUserListed: the user is individually allowed.
	ReasonUserListed Reason = "user_listed"
	// ReasonNotListed: enabled, rules exist, none match.
	ReasonNotListed Reason = "not_listed"
	// ReasonStorageUnavailable: the allow-list could not be read at all.
	ReasonStorageUnavailable Reason = "storage_unavailable"
)

// Result is the outcome of one access evaluation.
type Result struct {
	Granted bool
	Reason  Reason
}

// AdminChecker is the slice of the admin resolver the evaluator needs.
type AdminChecker interface {
	IsAdmin(ctx context.Context, identity *portal.Identity, cred portal.Credential) bool
}

// Evaluator decides grant/deny for a user against the allow-list document.
type Evaluator struct {
	directory portal.Directory
	store     store.Store
	admin     AdminChecker
	logger    *slog.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(directory portal.Directory, st store.Store, admin AdminChecker, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		directory: directory,
		store:     st,
		admin:     admin,
		logger:    logger.With(slog.String("component", "gate")),
	}
}

// CheckAccess evaluates the credential's owner against the allow-list.
// First match wins: identity resolution, admin bypass, disabled gate,
// empty-list fail-closed, department membership, user listing, not listed.
// The admin check deliberately precedes the enabled check — an admin is
// admitted with reason "admin" even when the gate is switched off.
func (e *Evaluator) CheckAccess(ctx context.Context, cred portal.Credential, userID int64, departmentIDs []int64) Result {
	result := e.evaluate(ctx, cred, userID, departmentIDs)

	status := "denied"
	if result.Granted {
		status = "granted"
	}
	audit.Event{
		UserID: userID,
		Action: "check_access",
		Status: status,
		Reason: string(result.Reason),
		Extra:  []any{slog.Any("department_ids", departmentIDs)},
	}.Info("Audit Log: Access Check")

	return result
}

func (e *Evaluator) evaluate(ctx context.Context, cred portal.Credential, userID int64, departmentIDs []int64) Result {
	identity, err := e.directory.CurrentIdentity(ctx, cred)
	if err != nil {
		if portal.IsInvalidCredential(err) {
			return Result{Granted: false, Reason: ReasonCredentialInvalid}
		}
		e.logger.Warn("identity lookup failed during access check",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return Result{Granted: false, Reason: ReasonIdentityUnresolvable}
	}

	if e.admin.IsAdmin(ctx, identity, cred) {
		return Result{Granted: true, Reason: ReasonAdmin}
	}

	list, err := e.store.ReadAllowList(ctx)
	if err != nil {
		e.logger.Error("allow-list read failed, denying", slog.String("error", err.Error()))
		return Result{Granted: false, Reason: ReasonStorageUnavailable}
	}

	if !list.Enabled {
		return Result{Granted: true, Reason: ReasonCheckDisabled}
	}
	if len(list.Departments) == 0 && len(list.Users) == 0 {
		return Result{Granted: false, Reason: ReasonNoRulesConfigured}
	}
	for _, dep := range departmentIDs {
		if list.HasDepartment(dep) {
			return Result{Granted: true, Reason: ReasonDepartmentListed}
		}
	}
	if list.HasUser(userID) {
		return Result{Granted: true, Reason: ReasonUserListed}
	}
	return Result{Granted: false, Reason: ReasonNotListed}
}

func resourceID(kind string, id int64) string {
	return kind + "/" + strconv.FormatInt(id, 10)
}
