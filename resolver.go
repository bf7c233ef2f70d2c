package clawgateway

import (
	"net/http"
	"sort"
	"strings"

	"github.com/openclaw/clawgateway/providers"
	"github.com/openclaw/clawgateway/session"
)

// Target is a resolved upstream destination for a session.
type Target struct {
	// Upstream is the backend base URL.
	Upstream string

	// Token is an optional bearer token attached to proxied traffic.
	Token string
}

// ResolveRole maps an identity's groups to a role name using the provider's
// role mapping. Groups are checked in the order the provider returned them;
// the first mapped group wins. When no group matches, the mapping's "default"
// entry applies. With neither, ErrNoRoleAssigned is returned.
func ResolveRole(mapping map[string]string, groups []string) (string, error) {
	for _, group := range groups {
		if role, ok := mapping[group]; ok {
			return role, nil
		}
	}
	if role, ok := mapping["default"]; ok {
		return role, nil
	}
	return "", ErrNoRoleAssigned
}

// ResolveProfile picks the marketplace profile for a login. The profile the
// state token recorded wins when it still exists. Otherwise the profile
// flagged as default applies, then the first profile in sorted key order.
// An empty profile map yields ErrInvalidProfile.
func ResolveProfile(profiles map[string]ProfileConfig, requested string) (string, error) {
	if requested != "" {
		if _, ok := profiles[requested]; ok {
			return requested, nil
		}
	}
	for name, p := range profiles {
		if p.Default {
			return name, nil
		}
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", ErrInvalidProfile
	}
	sort.Strings(names)
	return names[0], nil
}

// ResolveIdentity turns a verified identity into the session's role or
// profile assignment according to the gateway mode. In dual mode the state
// token decides the branch: a state that carried a profile selection replays
// the marketplace flow, anything else the enterprise flow.
func ResolveIdentity(cfg *Config, provider providers.Provider, identity *providers.Identity, state *session.State) (role, profile string, err error) {
	marketplace := cfg.Mode == ModeMarketplace ||
		(cfg.Mode == ModeDual && state != nil && state.Profile != "")

	if marketplace {
		requested := ""
		if state != nil {
			requested = state.Profile
		}
		profile, err = ResolveProfile(cfg.Profiles, requested)
		return "", profile, err
	}

	role, err = ResolveRole(provider.RoleMapping(), identity.Groups)
	return role, "", err
}

// TargetFor resolves the upstream for a session. Role takes precedence over
// profile when a session somehow carries both.
func TargetFor(cfg *Config, sess *session.Session) (Target, error) {
	if sess.Role != "" {
		rc, ok := cfg.Roles[sess.Role]
		if !ok || rc.Upstream == "" {
			return Target{}, ErrNoUpstream
		}
		return Target{Upstream: rc.Upstream, Token: rc.Token}, nil
	}
	if sess.Profile != "" {
		pc, ok := cfg.Profiles[sess.Profile]
		if !ok || pc.Upstream == "" {
			return Target{}, ErrNoUpstream
		}
		return Target{Upstream: pc.Upstream, Token: pc.Token}, nil
	}
	return Target{}, ErrNoUpstream
}

// ForwardHeaders returns the identity headers stamped onto every proxied
// request so upstreams can attribute traffic without re-authenticating.
func ForwardHeaders(sess *session.Session) http.Header {
	h := http.Header{}
	h.Set("X-Forwarded-User", sess.Email)
	if sess.Role != "" {
		h.Set("X-Forwarded-Role", sess.Role)
	} else if sess.Profile != "" {
		h.Set("X-Forwarded-Role", sess.Profile)
	}
	if len(sess.Groups) > 0 {
		h.Set("X-Forwarded-Groups", strings.Join(sess.Groups, ","))
	}
	return h
}

// IsAdmin reports whether a session may use the admin dashboard: the "admin"
// role always qualifies, then any email on the admins list. Without an admins
// list, marketplace and dual mode grant every authenticated user admin access
// to their own profile settings.
func IsAdmin(cfg *Config, sess *session.Session) bool {
	if sess.Role == "admin" {
		return true
	}
	for _, email := range cfg.Admins {
		if strings.EqualFold(email, sess.Email) {
			return true
		}
	}
	return len(cfg.Admins) == 0 && cfg.MarketplaceEnabled()
}
