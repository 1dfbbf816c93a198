package audit

import "log/slog"

// Enabled controls whether audit log entries are emitted. Set to false to
// suppress all audit output (useful in tests that don't exercise auditing).
var Enabled = true

// Event represents a structured audit log entry with typed fields.
// Only non-zero fields are included in the log output.
type Event struct {
	RequestID string // Correlation ID for the inbound request.
	Actor     string // Who performed the action (display name or "anonymous").
	UserID    int64  // Portal user ID of the actor, if resolved.
	Action    string // What was done (e.g. "authorize", "allowlist_add_department").
	Status    string // Outcome: "allow", "allow_degraded", "deny", "granted", "denied", "failed".
	Mode      string // Access mode in effect (host-only / everywhere / external-only).
	Source    string // Credential source (embedded_user, installer_cached, installer_direct, none).
	Reason    string // Machine-readable reason code for denial or grant.
	Resource  string // Target resource (department/user id for mutations).
	IP        string // Client IP address.
	Extra     []any  // Additional slog attrs for one-off fields.
}

// Info emits the event as an INFO-level structured audit log entry.
func (e Event) Info(msg string) {
	if !Enabled {
		return
	}
	slog.Info(msg, slog.Group("audit", e.attrs()...))
}

// Warn emits the event as a WARN-level structured audit log entry.
func (e Event) Warn(msg string) {
	if !Enabled {
		return
	}
	slog.Warn(msg, slog.Group("audit", e.attrs()...))
}

// attrs builds the slog attribute list, skipping zero-value fields.
func (e Event) attrs() []any {
	var attrs []any
	if e.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", e.RequestID))
	}
	if e.Actor != "" {
		attrs = append(attrs, slog.String("actor", e.Actor))
	}
	if e.UserID != 0 {
		attrs = append(attrs, slog.Int64("user_id", e.UserID))
	}
	if e.Action != "" {
		attrs = append(attrs, slog.String("action", e.Action))
	}
	if e.Status != "" {
		attrs = append(attrs, slog.String("status", e.Status))
	}
	if e.Mode != "" {
		attrs = append(attrs, slog.String("mode", e.Mode))
	}
	if e.Source != "" {
		attrs = append(attrs, slog.String("credential_source", e.Source))
	}
	if e.Reason != "" {
		attrs = append(attrs, slog.String("reason", e.Reason))
	}
	if e.Resource != "" {
		attrs = append(attrs, slog.String("resource", e.Resource))
	}
	if e.IP != "" {
		attrs = append(attrs, slog.String("ip_address", e.IP))
	}
	attrs = append(attrs, e.Extra...)
	return attrs
}
