package portal

import (
	"errors"
	"fmt"
)

// APIError is a failure reported by the portal REST API. The portal returns
// errors as a {"error": code, "error_description": text} payload instead of
// transport-level failures; this type is the tagged translation of that
// convention so callers never inspect raw response maps.
type APIError struct {
	Code        string
	Description string
	HTTPStatus  int
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("portal api: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("portal api: %s", e.Code)
}

// credential error codes the portal emits for broken/expired tokens.
// These must never be folded into "not admin" or "not found" — the
// orchestrator surfaces them as a distinct denial reason.
var invalidCredentialCodes = map[string]struct{}{
	"expired_token":       {},
	"invalid_token":       {},
	"invalid_grant":       {},
	"NO_AUTH_FOUND":       {},
	"WRONG_AUTH_TYPE":     {},
	"PAYMENT_REQUIRED":    {},
	"INVALID_CREDENTIALS": {},
}

// InvalidCredential reports whether the error indicates the credential
// itself is unusable (expired, revoked, malformed) rather than the call
// failing for other reasons.
func (e *APIError) InvalidCredential() bool {
	_, ok := invalidCredentialCodes[e.Code]
	return ok
}

// IsInvalidCredential reports whether err (anywhere in its chain) is a
// portal error for a broken credential.
func IsInvalidCredential(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.InvalidCredential()
}
