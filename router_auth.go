package clawgateway

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/openclaw/clawgateway/providers"
	"github.com/openclaw/clawgateway/security"
	"github.com/openclaw/clawgateway/session"
)

// loginErrorMessages maps the short codes carried on /login?error=... to the
// text shown on the login page. Unknown codes render a generic message so no
// attacker-controlled text reaches the page.
var loginErrorMessages = map[string]string{
	"invalid_state":    "Sign-in expired or was tampered with. Please try again.",
	"exchange_failed":  "The identity provider rejected the sign-in. Please try again.",
	"no_role":          "Your account has no role assigned. Contact your administrator.",
	"invalid_profile":  "The selected profile is not available.",
	"unknown_provider": "Unknown identity provider.",
	"access_denied":    "Sign-in was cancelled or denied.",
}

func (rt *Router) handleLoginPage(w http.ResponseWriter, r *http.Request, cfg *Config) {
	if !rt.checkRateLimit(w, r) {
		return
	}
	if _, ok := session.FromRequest(r, rt.codec(cfg)); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	errText := ""
	if code := r.URL.Query().Get("error"); code != "" {
		msg, known := loginErrorMessages[code]
		if !known {
			msg = "Sign-in failed. Please try again."
		}
		errText = msg
	}

	data := LoginPageData{Error: errText, DevMode: cfg.DevMode}
	rt.providersMu.RLock()
	for _, p := range rt.providerList {
		data.Providers = append(data.Providers, LoginProvider{Name: p.Name(), DisplayName: p.DisplayName()})
	}
	rt.providersMu.RUnlock()

	if cfg.MarketplaceEnabled() {
		names := make([]string, 0, len(cfg.Profiles))
		for name := range cfg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			pc := cfg.Profiles[name]
			data.Profiles = append(data.Profiles, LoginProfile{ID: name, Description: pc.Description, Default: pc.Default})
		}
	}

	security.SetPageHeaders(w, cfg.CallbackURL)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := rt.renderer.LoginPage(w, data); err != nil {
		rt.logger.Error("Failed to render login page", "error", err)
	}
}

// handleAuthInitiate starts the OAuth flow for /auth/{provider}: it seals a
// state token into a cookie and redirects to the provider's authorize URL.
// The marketplace branch records the selected profile inside the state so the
// callback can replay it.
func (rt *Router) handleAuthInitiate(w http.ResponseWriter, r *http.Request, cfg *Config) {
	if !rt.checkRateLimit(w, r) {
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/auth/")
	p, ok := rt.provider(name)
	if !ok {
		rt.authFailure(r, name, ErrUnknownProvider.Error())
		redirectLoginError(w, r, "unknown_provider")
		return
	}

	state := session.State{Provider: p.Name()}

	if cfg.MarketplaceEnabled() {
		if profile := r.URL.Query().Get("profile"); profile != "" {
			if _, ok := cfg.Profiles[profile]; ok {
				state.Profile = profile
			}
		}
	}

	challenge := ""
	if p.RequiresPKCE() {
		verifier, ch := providers.GeneratePKCE()
		state.PKCEVerifier = verifier
		challenge = ch
	}

	csrf := session.SetStateCookie(w, rt.codec(cfg), state, cfg.IsSecure())

	if rt.metrics != nil {
		rt.metrics.AuthStarted.Add(r.Context(), 1)
	}
	http.Redirect(w, r, p.AuthorizationURL(csrf, challenge), http.StatusFound)
}

// handleCallback finishes the OAuth flow: it verifies the state token against
// the returned state parameter, exchanges the code, resolves the role or
// profile and mints the session cookie. Every failure redirects back to
// /login with a short error code.
func (rt *Router) handleCallback(w http.ResponseWriter, r *http.Request, cfg *Config) {
	if !rt.checkRateLimit(w, r) {
		return
	}
	if rt.metrics != nil {
		rt.metrics.CallbacksTotal.Add(r.Context(), 1)
	}

	codec := rt.codec(cfg)
	q := r.URL.Query()

	// Providers report user denial and their own failures via ?error=; no
	// state or code arrives in that case, so bail out before verifying.
	if errParam := q.Get("error"); errParam != "" {
		rt.authFailure(r, "", errParam)
		redirectLoginError(w, r, "access_denied")
		return
	}

	state, ok := session.StateFromRequest(r, codec, q.Get("state"))
	if !ok {
		rt.authFailure(r, "", ErrInvalidState.Error())
		redirectLoginError(w, r, "invalid_state")
		return
	}

	p, ok := rt.provider(state.Provider)
	if !ok {
		rt.authFailure(r, state.Provider, ErrUnknownProvider.Error())
		redirectLoginError(w, r, "unknown_provider")
		return
	}

	code := q.Get("code")
	if code == "" {
		rt.authFailure(r, p.Name(), "callback missing code")
		redirectLoginError(w, r, "exchange_failed")
		return
	}

	identity, err := p.Exchange(r.Context(), code, state.PKCEVerifier)
	if rt.metrics != nil {
		rt.metrics.RecordExchange(r.Context(), p.Name(), err)
	}
	if err != nil {
		rt.logger.Warn("Provider exchange failed", "provider", p.Name(), "error", err)
		rt.authFailure(r, p.Name(), err.Error())
		redirectLoginError(w, r, "exchange_failed")
		return
	}

	role, profile, err := ResolveIdentity(cfg, p, identity, state)
	if err != nil {
		rt.authFailure(r, p.Name(), err.Error())
		switch {
		case errors.Is(err, ErrNoRoleAssigned):
			redirectLoginError(w, r, "no_role")
		case errors.Is(err, ErrInvalidProfile):
			redirectLoginError(w, r, "invalid_profile")
		default:
			redirectLoginError(w, r, "exchange_failed")
		}
		return
	}

	sess := session.Session{
		Email:    identity.Email,
		Name:     identity.Name,
		Provider: p.Name(),
		Role:     role,
		Profile:  profile,
		Groups:   identity.Groups,
		Avatar:   identity.AvatarURL,
	}
	session.SetSessionCookie(w, codec, sess, cfg.IsSecure())

	if rt.metrics != nil {
		rt.metrics.LoginsTotal.Add(r.Context(), 1)
	}
	rt.audit(security.AuditEvent{
		Action:    security.AuditLogin,
		User:      sess.Email,
		Role:      badgeOf(&sess),
		Provider:  p.Name(),
		IP:        security.ClientIP(r),
		RequestID: security.GetRequestID(r.Context()),
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request, cfg *Config) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	if sess, ok := session.FromRequest(r, rt.codec(cfg)); ok {
		rt.audit(security.AuditEvent{
			Action:    security.AuditLogout,
			User:      sess.Email,
			Role:      badgeOf(sess),
			Provider:  sess.Provider,
			IP:        security.ClientIP(r),
			RequestID: security.GetRequestID(r.Context()),
		})
	}

	session.ClearCookies(w, cfg.IsSecure())
	http.Redirect(w, r, "/login", http.StatusFound)
}

// handleDevLogin mints a session for the configured dev user without touching
// any provider. Only reachable in dev mode.
func (rt *Router) handleDevLogin(w http.ResponseWriter, r *http.Request, cfg *Config) {
	if !cfg.DevMode || cfg.DevUser == nil {
		rt.unauthorized(w, r)
		return
	}
	rt.devAutoLogin(w, r, cfg)
}

func (rt *Router) devAutoLogin(w http.ResponseWriter, r *http.Request, cfg *Config) {
	u := cfg.DevUser
	sess := session.Session{
		Email:    u.Email,
		Name:     u.Email,
		Provider: "dev",
		Role:     u.Role,
		Profile:  u.Profile,
		Groups:   u.Groups,
	}
	session.SetSessionCookie(w, rt.codec(cfg), sess, cfg.IsSecure())

	rt.audit(security.AuditEvent{
		Action:    security.AuditLogin,
		User:      sess.Email,
		Role:      badgeOf(&sess),
		Provider:  "dev",
		IP:        security.ClientIP(r),
		RequestID: security.GetRequestID(r.Context()),
		Detail:    "dev auto-login",
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (rt *Router) authFailure(r *http.Request, provider, detail string) {
	rt.audit(security.AuditEvent{
		Action:    security.AuditAuthFailure,
		Provider:  provider,
		IP:        security.ClientIP(r),
		RequestID: security.GetRequestID(r.Context()),
		Detail:    detail,
	})
}
