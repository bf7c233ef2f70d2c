package clawgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/openclaw/clawgateway/providers"
)

// providerStub is an in-process Provider for tests. Exchange returns the
// canned identity or error without touching the network.
type providerStub struct {
	name     string
	mapping  map[string]string
	pkce     bool
	identity *providers.Identity
	err      error

	exchangedCode     string
	exchangedVerifier string
}

func (s *providerStub) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *providerStub) DisplayName() string            { return "Stub" }
func (s *providerStub) RoleMapping() map[string]string { return s.mapping }
func (s *providerStub) RequiresPKCE() bool             { return s.pkce }

func (s *providerStub) AuthorizationURL(state, codeChallenge string) string {
	return fmt.Sprintf("https://idp.example/authorize?state=%s&code_challenge=%s", state, codeChallenge)
}

func (s *providerStub) Exchange(_ context.Context, code, codeVerifier string) (*providers.Identity, error) {
	s.exchangedCode = code
	s.exchangedVerifier = codeVerifier
	if s.err != nil {
		return nil, s.err
	}
	if s.identity != nil {
		return s.identity, nil
	}
	return identityWithGroups(), nil
}

func identityWithGroups(groups ...string) *providers.Identity {
	if groups == nil {
		groups = []string{}
	}
	return &providers.Identity{
		Email:  "user@example.com",
		Name:   "Test User",
		Groups: groups,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// writeTestConfig marshals a config to a temp file and returns its path.
func writeTestConfig(t *testing.T, cfg map[string]any) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "gateway.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// baseConfigMap is a minimal valid enterprise config for tests. Callers
// mutate the returned map before writing it.
func baseConfigMap() map[string]any {
	return map[string]any{
		"port":          18789,
		"sessionSecret": "test-secret-0123456789",
		"callbackUrl":   "http://localhost:18789/auth/callback",
		"auth": []map[string]any{{
			"provider":     "google",
			"clientId":     "client-id",
			"clientSecret": "client-secret",
			"roleMapping":  map[string]string{"corp.example": "member", "default": "viewer"},
		}},
		"mode": "enterprise",
		"roles": map[string]any{
			"member": "http://127.0.0.1:3001",
			"viewer": map[string]any{"upstream": "http://127.0.0.1:3002", "description": "read only"},
		},
	}
}

// newTestManager loads a manager from a config map without starting a watcher.
func newTestManager(t *testing.T, cfg map[string]any) *ConfigManager {
	t.Helper()
	m, err := NewConfigManager(writeTestConfig(t, cfg), testLogger())
	if err != nil {
		t.Fatalf("NewConfigManager: %v", err)
	}
	return m
}
