package clawgateway

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigValid(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t, baseConfigMap()))
	require.NoError(t, err)

	assert.Equal(t, 18789, cfg.Port)
	assert.Equal(t, ModeEnterprise, cfg.Mode)
	assert.Equal(t, DefaultStudioUpstream, cfg.StudioUpstream)

	// Bare-string role shorthand expands to a RoleConfig.
	assert.Equal(t, "http://127.0.0.1:3001", cfg.Roles["member"].Upstream)
	assert.Equal(t, "read only", cfg.Roles["viewer"].Description)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/gateway.json")
	require.Error(t, err)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := writeTestConfig(t, baseConfigMap())
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

	_, err := LoadConfig(path)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(map[string]any)
		wantField string
	}{
		{
			name:      "port zero",
			mutate:    func(m map[string]any) { m["port"] = 0 },
			wantField: "port",
		},
		{
			name:      "short session secret",
			mutate:    func(m map[string]any) { m["sessionSecret"] = "short" },
			wantField: "sessionSecret",
		},
		{
			name:      "missing callback URL",
			mutate:    func(m map[string]any) { delete(m, "callbackUrl") },
			wantField: "callbackUrl",
		},
		{
			name:      "empty auth list",
			mutate:    func(m map[string]any) { m["auth"] = []map[string]any{} },
			wantField: "auth",
		},
		{
			name: "unknown provider",
			mutate: func(m map[string]any) {
				m["auth"] = []map[string]any{{"provider": "github", "clientId": "c", "clientSecret": "s"}}
			},
			wantField: "auth[0]",
		},
		{
			name: "okta without issuer",
			mutate: func(m map[string]any) {
				m["auth"] = []map[string]any{{"provider": "okta", "clientId": "c", "clientSecret": "s"}}
			},
			wantField: "auth[0]",
		},
		{
			name:      "unknown mode",
			mutate:    func(m map[string]any) { m["mode"] = "hybrid" },
			wantField: "mode",
		},
		{
			name:      "enterprise without roles",
			mutate:    func(m map[string]any) { delete(m, "roles") },
			wantField: "roles",
		},
		{
			name: "marketplace without profiles",
			mutate: func(m map[string]any) {
				m["mode"] = "marketplace"
			},
			wantField: "profiles",
		},
		{
			name: "role without upstream",
			mutate: func(m map[string]any) {
				m["roles"] = map[string]any{"member": map[string]any{"description": "no upstream"}}
			},
			wantField: "roles",
		},
		{
			name: "dual needs both roles and profiles",
			mutate: func(m map[string]any) {
				m["mode"] = "dual"
			},
			wantField: "profiles",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := baseConfigMap()
			tt.mutate(m)
			_, err := LoadConfig(writeTestConfig(t, m))

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "err = %v", err)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestValidateDefaultsMode(t *testing.T) {
	m := baseConfigMap()
	delete(m, "mode")
	cfg, err := LoadConfig(writeTestConfig(t, m))
	require.NoError(t, err)
	assert.Equal(t, ModeEnterprise, cfg.Mode)
}

func TestIsSecure(t *testing.T) {
	assert.True(t, (&Config{CallbackURL: "https://gw.example.com/auth/callback"}).IsSecure())
	assert.False(t, (&Config{CallbackURL: "http://localhost:18789/auth/callback"}).IsSecure())
}

func TestConfigManagerReloadKeepsPriorOnInvalid(t *testing.T) {
	m := newTestManager(t, baseConfigMap())
	defer m.Close()

	require.Equal(t, 18789, m.Current().Port)

	// Break the file, then reload: the prior snapshot must survive.
	require.NoError(t, os.WriteFile(m.Path(), []byte("{broken"), 0o600))
	m.Reload()
	assert.Equal(t, 18789, m.Current().Port)
}

func TestConfigManagerReloadSwapsSnapshot(t *testing.T) {
	m := newTestManager(t, baseConfigMap())
	defer m.Close()

	updated := baseConfigMap()
	updated["port"] = 28789
	data := writeTestConfig(t, updated)
	raw, err := os.ReadFile(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(m.Path(), raw, 0o600))

	var reloaded *Config
	m.OnReload = func(c *Config) { reloaded = c }
	m.Reload()

	assert.Equal(t, 28789, m.Current().Port)
	require.NotNil(t, reloaded)
	assert.Equal(t, 28789, reloaded.Port)
}

func TestConfigManagerMissingFileAtStartup(t *testing.T) {
	_, err := NewConfigManager("/nonexistent/gateway.json", testLogger())
	require.Error(t, err)
}
