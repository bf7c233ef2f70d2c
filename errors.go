package clawgateway

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid configuration value. It is fatal at startup;
// during hot reload it is logged and the prior snapshot stays active.
type ConfigError struct {
	Field  string // config field that failed validation
	Reason string // human-readable reason
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("config field %q: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Authorization resolution errors. All of these are recovered by redirecting
// the user back to /login with an error message; none is ever process-fatal.
var (
	// ErrNoRoleAssigned indicates none of the identity's groups mapped to a role
	// and the provider's role mapping has no default.
	ErrNoRoleAssigned = errors.New("no role assigned for identity groups")

	// ErrInvalidProfile indicates the requested (or fallback) profile does not
	// resolve to a configured upstream.
	ErrInvalidProfile = errors.New("profile does not resolve to a configured upstream")

	// ErrInvalidState indicates the OAuth state token failed verification or its
	// CSRF value did not match the callback query parameter.
	ErrInvalidState = errors.New("invalid or expired state token")

	// ErrUnknownProvider indicates a login referenced a provider that is not configured.
	ErrUnknownProvider = errors.New("unknown auth provider")

	// ErrNoUpstream indicates a valid session has no upstream configured for its
	// role or profile.
	ErrNoUpstream = errors.New("no upstream configured for role or profile")
)
