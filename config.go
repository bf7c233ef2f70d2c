package clawgateway

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openclaw/clawgateway/providers"
)

// DefaultStudioUpstream is the backend used for authenticated traffic when the
// config does not name one.
const DefaultStudioUpstream = "http://127.0.0.1:3000"

// minSessionSecretLength is the minimum length of the HMAC session secret.
const minSessionSecretLength = 16

// LoadConfig reads, parses and validates a gateway config file. The returned
// snapshot is normalized: mode defaulted, shorthand role URLs expanded.
func LoadConfig(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the full configuration contract and normalizes defaults in
// place. It returns a *ConfigError describing the first violation found.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return configErrorf("port", "invalid port %d", c.Port)
	}
	if len(c.SessionSecret) < minSessionSecretLength {
		return configErrorf("sessionSecret", "must be at least %d characters", minSessionSecretLength)
	}
	if c.CallbackURL == "" {
		return configErrorf("callbackUrl", "is required")
	}
	if len(c.Auth) == 0 {
		return configErrorf("auth", "must be a non-empty list of provider configs")
	}

	for i, a := range c.Auth {
		field := fmt.Sprintf("auth[%d]", i)
		if a.Provider == "" {
			return configErrorf(field, "missing provider")
		}
		if !providers.ValidKind(providers.Kind(a.Provider)) {
			return configErrorf(field, "unknown auth provider %q", a.Provider)
		}
		if a.ClientID == "" {
			return configErrorf(field, "%s: missing clientId", a.Provider)
		}
		if a.ClientSecret == "" {
			return configErrorf(field, "%s: missing clientSecret", a.Provider)
		}
		if providers.Kind(a.Provider) == providers.KindOkta && a.Issuer == "" {
			return configErrorf(field, "okta: missing issuer")
		}
	}

	if c.Mode == "" {
		c.Mode = ModeEnterprise
	}
	switch c.Mode {
	case ModeEnterprise, ModeMarketplace, ModeDual:
	default:
		return configErrorf("mode", "unknown mode %q", c.Mode)
	}

	if c.EnterpriseEnabled() && len(c.Roles) == 0 {
		return configErrorf("roles", "%s mode requires a non-empty roles map", c.Mode)
	}
	if c.MarketplaceEnabled() && len(c.Profiles) == 0 {
		return configErrorf("profiles", "%s mode requires a non-empty profiles map", c.Mode)
	}

	for name, r := range c.Roles {
		if r.Upstream == "" {
			return configErrorf("roles", "role %q has no upstream", name)
		}
	}
	for id, p := range c.Profiles {
		if p.Upstream == "" {
			return configErrorf("profiles", "profile %q has no upstream", id)
		}
	}

	if c.StudioUpstream == "" {
		c.StudioUpstream = DefaultStudioUpstream
	}
	return nil
}
