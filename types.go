package clawgateway

import "encoding/json"

// Mode selects which authorization model the gateway runs.
type Mode string

const (
	// ModeEnterprise maps identity groups to roles via each provider's role mapping.
	ModeEnterprise Mode = "enterprise"

	// ModeMarketplace maps users to explicitly selected (or default) profiles.
	ModeMarketplace Mode = "marketplace"

	// ModeDual supports both flows; the state token records which branch a login
	// initiated and the callback replays it.
	ModeDual Mode = "dual"
)

// RoleConfig describes an enterprise role and the upstream instance it maps to.
type RoleConfig struct {
	// Upstream is the base URL of the backend instance for this role.
	Upstream string `json:"upstream"`

	// Tools optionally restricts the tool set exposed to this role.
	Tools []string `json:"tools,omitempty"`

	// Token is an optional bearer token attached to proxied traffic.
	Token string `json:"token,omitempty"`

	// Description is shown on the admin dashboard.
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON accepts either a bare upstream URL string or a full object.
// Bare strings are the original shorthand form and are normalized at load time.
func (r *RoleConfig) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = RoleConfig{Upstream: s}
		return nil
	}

	type roleConfig RoleConfig
	var rc roleConfig
	if err := json.Unmarshal(data, &rc); err != nil {
		return err
	}
	*r = RoleConfig(rc)
	return nil
}

// ProfileConfig describes a marketplace profile.
type ProfileConfig struct {
	// Upstream is the base URL of the backend instance for this profile.
	Upstream string `json:"upstream"`

	// Token is an optional bearer token attached to proxied traffic.
	Token string `json:"token,omitempty"`

	// Description is shown on the login page profile picker.
	Description string `json:"description,omitempty"`

	// Default marks this profile as the fallback when a login did not select one.
	Default bool `json:"default,omitempty"`
}

// AuthConfig configures a single OAuth2 identity provider.
type AuthConfig struct {
	// Provider is the provider kind: okta, workos, descope, twitter or google.
	Provider string `json:"provider"`

	// ClientID is the OAuth client (or project) identifier.
	ClientID string `json:"clientId"`

	// ClientSecret is the OAuth client secret.
	ClientSecret string `json:"clientSecret"`

	// Issuer is the OAuth issuer base URL (Okta only).
	Issuer string `json:"issuer,omitempty"`

	// OrganizationID optionally pins WorkOS logins to one organization.
	OrganizationID string `json:"organizationId,omitempty"`

	// ConnectionID optionally pins WorkOS logins to one SSO connection.
	ConnectionID string `json:"connectionId,omitempty"`

	// RoleMapping maps identity group names to role names. The special key
	// "default" names the role assigned when no group matches.
	RoleMapping map[string]string `json:"roleMapping,omitempty"`
}

// DevUser is the identity minted by dev-mode auto-login.
type DevUser struct {
	Email   string   `json:"email"`
	Role    string   `json:"role,omitempty"`
	Profile string   `json:"profile,omitempty"`
	Groups  []string `json:"groups,omitempty"`
}

// Config is a validated, immutable gateway configuration snapshot.
// Mutating a live snapshot is not supported; reloads swap the whole value.
type Config struct {
	// Port is the TCP port the gateway listens on.
	Port int `json:"port"`

	// SessionSecret signs session and state tokens. Minimum 16 characters.
	SessionSecret string `json:"sessionSecret"`

	// CallbackURL is the OAuth redirect URL registered with every provider.
	// An https callback URL switches cookies to Secure.
	CallbackURL string `json:"callbackUrl"`

	// Auth lists the enabled identity providers.
	Auth []AuthConfig `json:"auth"`

	// Mode selects the authorization model. Defaults to enterprise.
	Mode Mode `json:"mode,omitempty"`

	// Roles maps role names to upstream instances (enterprise and dual modes).
	Roles map[string]RoleConfig `json:"roles,omitempty"`

	// Profiles maps profile IDs to upstream instances (marketplace and dual modes).
	Profiles map[string]ProfileConfig `json:"profiles,omitempty"`

	// Admins lists emails granted admin dashboard access.
	Admins []string `json:"admins,omitempty"`

	// StudioUpstream is the default backend for authenticated traffic that is
	// not the gateway WebSocket. Defaults to http://127.0.0.1:3000.
	StudioUpstream string `json:"studioUpstream,omitempty"`

	// AuditLog is an optional path for the append-only JSONL audit file.
	AuditLog string `json:"auditLog,omitempty"`

	// DevMode enables the /dev/login endpoint and DevUser auto-login.
	// Never enable in production.
	DevMode bool `json:"devMode,omitempty"`

	// DevUser is the identity auto-logged-in when DevMode is set.
	DevUser *DevUser `json:"devUser,omitempty"`
}

// IsSecure reports whether cookies must carry the Secure attribute,
// derived from the scheme of the configured callback URL.
func (c *Config) IsSecure() bool {
	return len(c.CallbackURL) >= 8 && c.CallbackURL[:8] == "https://"
}

// EnterpriseEnabled reports whether role-based resolution is active.
func (c *Config) EnterpriseEnabled() bool {
	return c.Mode == ModeEnterprise || c.Mode == ModeDual
}

// MarketplaceEnabled reports whether profile-based resolution is active.
func (c *Config) MarketplaceEnabled() bool {
	return c.Mode == ModeMarketplace || c.Mode == ModeDual
}
