package security

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Audit event actions emitted by the gateway.
const (
	AuditLogin        = "login"
	AuditLogout       = "logout"
	AuditProxy        = "proxy"
	AuditWSConnect    = "ws_connect"
	AuditWSDisconnect = "ws_disconnect"
	AuditAdminUpdate  = "admin_update_profile"
	AuditAuthFailure  = "auth_failure"
	AuditRateLimited  = "rate_limited"
)

// AuditEvent is one audit record. Events are written as structured log lines
// and, when a file is configured, appended as JSONL.
type AuditEvent struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"ts"`
	Action    string    `json:"action"`
	User      string    `json:"user,omitempty"`
	Role      string    `json:"role,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Upstream  string    `json:"upstream,omitempty"`
	IP        string    `json:"ip,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Auditor records audit events. A nil *Auditor is a valid no-op.
type Auditor struct {
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// NewAuditor creates an auditor. When path is non-empty the file is opened
// append-only and every event is written as one JSON line.
func NewAuditor(logger *slog.Logger, path string) (*Auditor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Auditor{logger: logger}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		a.file = f
	}
	return a, nil
}

// Log stamps and records an event, returning the stamped copy so callers can
// keep it (the router keeps a ring of recent events for the admin dashboard).
func (a *Auditor) Log(e AuditEvent) AuditEvent {
	e.ID = uuid.NewString()
	e.Time = time.Now().UTC()

	if a == nil {
		return e
	}

	a.logger.Info("audit",
		"action", e.Action,
		"user", e.User,
		"role", e.Role,
		"provider", e.Provider,
		"upstream", e.Upstream,
		"ip", e.IP,
		"request_id", e.RequestID,
		"detail", e.Detail,
	)

	if a.file != nil {
		line, err := json.Marshal(e)
		if err != nil {
			a.logger.Error("Failed to marshal audit event", "error", err)
			return e
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		if _, err := a.file.Write(append(line, '\n')); err != nil {
			a.logger.Error("Failed to write audit event", "error", err)
		}
	}
	return e
}

// Close releases the audit file, if any.
func (a *Auditor) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
