package audit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func captureJSON(t *testing.T, fn func()) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(old)

	fn()

	if buf.Len() == 0 {
		return nil
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	return entry
}

func TestEventInfo(t *testing.T) {
	entry := captureJSON(t, func() {
		Event{
			RequestID: "req-1",
			Actor:     "Ada",
			UserID:    42,
			Action:    "authorize",
			Status:    "allow",
			Mode:      "host-only",
			Source:    "embedded_user",
			Reason:    "admin",
		}.Info("Audit Log: Authorization")
	})

	if entry["msg"] != "Audit Log: Authorization" {
		t.Errorf("msg = %v", entry["msg"])
	}
	group, ok := entry["audit"].(map[string]any)
	if !ok {
		t.Fatalf("audit group missing: %v", entry)
	}
	if group["actor"] != "Ada" || group["status"] != "allow" || group["reason"] != "admin" {
		t.Errorf("audit group = %v", group)
	}
	if group["user_id"] != float64(42) {
		t.Errorf("user_id = %v", group["user_id"])
	}
}

func TestEventSkipsZeroFields(t *testing.T) {
	entry := captureJSON(t, func() {
		Event{Action: "check_access", Status: "granted"}.Info("Audit Log: Access Check")
	})

	group := entry["audit"].(map[string]any)
	for _, absent := range []string{"actor", "user_id", "reason", "ip_address", "request_id"} {
		if _, ok := group[absent]; ok {
			t.Errorf("zero field %q should be omitted, got %v", absent, group[absent])
		}
	}
}

func TestEventDisabled(t *testing.T) {
	Enabled = false
	defer func() { Enabled = true }()

	entry := captureJSON(t, func() {
		Event{Action: "authorize"}.Info("suppressed")
	})
	if entry != nil {
		t.Errorf("disabled auditing must emit nothing, got %v", entry)
	}
}
