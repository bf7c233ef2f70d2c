package providers

import (
	"context"
	"fmt"
)

// Kind identifies a supported OAuth2 provider variant.
type Kind string

// The closed set of provider kinds.
const (
	KindOkta    Kind = "okta"
	KindWorkOS  Kind = "workos"
	KindDescope Kind = "descope"
	KindTwitter Kind = "twitter"
	KindGoogle  Kind = "google"
)

// ValidKind reports whether k names a supported provider.
func ValidKind(k Kind) bool {
	switch k {
	case KindOkta, KindWorkOS, KindDescope, KindTwitter, KindGoogle:
		return true
	}
	return false
}

// Identity is the normalized user attributes produced by a successful OAuth
// callback exchange. It is created once per callback and never mutated.
//
// Groups preserves the provider-supplied order; role resolution iterates it
// in order and the first mapped group wins.
type Identity struct {
	// Email is the user's email address. Twitter has no email scope; for it
	// the value is synthesized as "@username".
	Email string

	// Name is the user's display name, falling back to Email.
	Name string

	// Groups are the provider-reported group or role names, in provider order.
	Groups []string

	// AvatarURL is an optional profile picture URL.
	AvatarURL string
}

// Config holds the per-provider settings taken from the gateway config.
type Config struct {
	// ClientID is the OAuth client (or Descope project) identifier.
	ClientID string

	// ClientSecret is the OAuth client secret.
	ClientSecret string

	// Issuer is the OAuth issuer base URL (Okta only).
	Issuer string

	// OrganizationID optionally pins WorkOS logins to one organization.
	OrganizationID string

	// ConnectionID optionally pins WorkOS logins to one SSO connection.
	ConnectionID string

	// RoleMapping maps identity group names to gateway role names. The key
	// "default" names the fallback role.
	RoleMapping map[string]string
}

// Provider is the uniform client for one OAuth2 identity provider.
type Provider interface {
	// Name returns the provider kind string (e.g. "okta").
	Name() string

	// DisplayName returns the human-readable provider name for the login page.
	DisplayName() string

	// RoleMapping returns the provider's group-to-role mapping, or nil when the
	// provider carries no group information usable for role resolution.
	RoleMapping() map[string]string

	// RequiresPKCE reports whether auth initiation must generate a PKCE pair.
	RequiresPKCE() bool

	// AuthorizationURL builds the provider authorize redirect URL. It is pure:
	// no network calls, no side effects. codeChallenge is empty for providers
	// that do not use PKCE.
	AuthorizationURL(state, codeChallenge string) string

	// Exchange trades the callback code for a normalized Identity. It performs
	// the token exchange and, where the provider requires it, a userinfo fetch.
	// Failures are reported as *ExchangeError and are always recoverable by the
	// caller. codeVerifier is empty for providers that do not use PKCE.
	Exchange(ctx context.Context, code, codeVerifier string) (*Identity, error)
}

// New constructs the provider implementation for the given kind. The switch
// is exhaustive over the closed Kind set.
func New(kind Kind, cfg Config, callbackURL string) (Provider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%s: client ID is required", kind)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%s: client secret is required", kind)
	}

	switch kind {
	case KindOkta:
		return newOkta(cfg, callbackURL)
	case KindWorkOS:
		return newWorkOS(cfg, callbackURL), nil
	case KindDescope:
		return newDescope(cfg, callbackURL), nil
	case KindTwitter:
		return newTwitter(cfg, callbackURL), nil
	case KindGoogle:
		return newGoogle(cfg, callbackURL), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", kind)
	}
}
