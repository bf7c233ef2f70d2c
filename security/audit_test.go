package security

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAuditorStampsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	a, err := NewAuditor(nil, path)
	if err != nil {
		t.Fatalf("NewAuditor: %v", err)
	}
	defer a.Close()

	e1 := a.Log(AuditEvent{Action: AuditLogin, User: "user@example.com", IP: "1.2.3.4"})
	e2 := a.Log(AuditEvent{Action: AuditLogout, User: "user@example.com"})

	if e1.ID == "" || e2.ID == "" {
		t.Error("events not stamped with IDs")
	}
	if e1.ID == e2.ID {
		t.Error("two events share an ID")
	}
	if e1.Time.IsZero() {
		t.Error("event not timestamped")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	var lines []AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad JSONL line: %v", err)
		}
		lines = append(lines, e)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Action != AuditLogin || lines[1].Action != AuditLogout {
		t.Errorf("actions = %q, %q", lines[0].Action, lines[1].Action)
	}
}

func TestAuditorNilIsNoOp(t *testing.T) {
	var a *Auditor
	e := a.Log(AuditEvent{Action: AuditProxy})
	if e.Action != AuditProxy {
		t.Error("nil auditor mangled the event")
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close on nil auditor: %v", err)
	}
}

func TestAuditorWithoutFile(t *testing.T) {
	a, err := NewAuditor(nil, "")
	if err != nil {
		t.Fatalf("NewAuditor: %v", err)
	}
	defer a.Close()

	e := a.Log(AuditEvent{Action: AuditProxy, User: "u"})
	if e.ID == "" {
		t.Error("event not stamped")
	}
}
