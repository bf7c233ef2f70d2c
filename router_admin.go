package clawgateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/openclaw/clawgateway/profiles"
	"github.com/openclaw/clawgateway/security"
	"github.com/openclaw/clawgateway/session"
)

// maxAdminBodyBytes caps admin API request bodies.
const maxAdminBodyBytes = 64 << 10

// sanitizedConfig is the admin API's view of the live config. Secrets and
// tokens never leave the process.
type sanitizedConfig struct {
	Mode           Mode                       `json:"mode"`
	CallbackURL    string                     `json:"callbackUrl"`
	StudioUpstream string                     `json:"studioUpstream"`
	Providers      []string                   `json:"providers"`
	Roles          map[string]sanitizedTarget `json:"roles,omitempty"`
	Profiles       map[string]sanitizedTarget `json:"profiles,omitempty"`
	Admins         []string                   `json:"admins,omitempty"`
	DevMode        bool                       `json:"devMode,omitempty"`
	RecentAudit    []security.AuditEvent      `json:"recentAudit"`
}

type sanitizedTarget struct {
	Upstream    string `json:"upstream"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`
	HasToken    bool   `json:"hasToken"`
}

// profilePatch is the admin API's profile update request. All fields are
// optional; absent fields leave the stored value untouched.
type profilePatch struct {
	Tools  *profiles.ToolConfig `json:"tools,omitempty"`
	APIKey string               `json:"apiKey,omitempty"`
	Model  string               `json:"model,omitempty"`
}

func (rt *Router) handleAdmin(w http.ResponseWriter, r *http.Request, cfg *Config) {
	sess, ok := session.FromRequest(r, rt.codec(cfg))
	if !ok {
		rt.unauthorized(w, r)
		return
	}
	if !IsAdmin(cfg, sess) {
		writeJSONError(w, http.StatusForbidden, "Forbidden")
		return
	}

	switch {
	case r.URL.Path == "/admin" && r.Method == http.MethodGet:
		security.SetPageHeaders(w, cfg.CallbackURL)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := rt.renderer.AdminPage(w, AdminPageData{Email: sess.Email, Mode: cfg.Mode}); err != nil {
			rt.logger.Error("Failed to render admin page", "error", err)
		}
	case r.URL.Path == "/admin/api/config" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, rt.sanitizeConfig(cfg))
	case strings.HasPrefix(r.URL.Path, "/admin/api/profiles/") && r.Method == http.MethodPost:
		rt.handleProfileUpdate(w, r, cfg, sess.Email)
	default:
		writeJSONError(w, http.StatusNotFound, "Not Found")
	}
}

func (rt *Router) sanitizeConfig(cfg *Config) sanitizedConfig {
	out := sanitizedConfig{
		Mode:           cfg.Mode,
		CallbackURL:    cfg.CallbackURL,
		StudioUpstream: cfg.StudioUpstream,
		Providers:      rt.providerNames(),
		Admins:         cfg.Admins,
		DevMode:        cfg.DevMode,
		RecentAudit:    rt.RecentAudit(),
	}

	if len(cfg.Roles) > 0 {
		out.Roles = make(map[string]sanitizedTarget, len(cfg.Roles))
		for name, rc := range cfg.Roles {
			out.Roles[name] = sanitizedTarget{
				Upstream:    rc.Upstream,
				Description: rc.Description,
				HasToken:    rc.Token != "",
			}
		}
	}
	if len(cfg.Profiles) > 0 {
		out.Profiles = make(map[string]sanitizedTarget, len(cfg.Profiles))
		for name, pc := range cfg.Profiles {
			out.Profiles[name] = sanitizedTarget{
				Upstream:    pc.Upstream,
				Description: pc.Description,
				Default:     pc.Default,
				HasToken:    pc.Token != "",
			}
		}
	}
	return out
}

// handleProfileUpdate applies a tool/API-key/model patch to one profile's
// instance config on disk. Writes are throttled per IP independently of the
// auth-surface limiter.
func (rt *Router) handleProfileUpdate(w http.ResponseWriter, r *http.Request, cfg *Config, adminEmail string) {
	ip := security.ClientIP(r)
	if !rt.adminLimiter.Allow(ip) {
		w.Header().Set("Retry-After", "60")
		writeJSONError(w, http.StatusTooManyRequests, "Too Many Requests")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/admin/api/profiles/")
	if name == "" || strings.Contains(name, "/") {
		writeJSONError(w, http.StatusNotFound, "Not Found")
		return
	}
	if _, ok := cfg.Profiles[name]; !ok {
		if _, ok := cfg.Roles[name]; !ok {
			writeJSONError(w, http.StatusNotFound, "unknown profile")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxAdminBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	var patch profilePatch
	if err := json.Unmarshal(body, &patch); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if patch.Tools != nil {
		if patch.Tools.Profile != "" {
			if _, ok := profiles.ToolProfiles[patch.Tools.Profile]; !ok {
				writeJSONError(w, http.StatusBadRequest, "unknown tool profile")
				return
			}
		}
		if err := rt.store.WriteTools(name, *patch.Tools); err != nil {
			rt.logger.Error("Failed to write tool config", "profile", name, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "failed to persist tool config")
			return
		}
	}

	merge := map[string]any{}
	if patch.APIKey != "" {
		merge["auth"] = map[string]any{"anthropic": map[string]any{"apiKey": patch.APIKey}}
	}
	if patch.Model != "" {
		merge["agents"] = map[string]any{"defaults": map[string]any{"model": map[string]any{"primary": patch.Model}}}
	}
	if len(merge) > 0 {
		if err := rt.store.Merge(name, merge); err != nil {
			rt.logger.Error("Failed to merge instance config", "profile", name, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "failed to persist instance config")
			return
		}
	}

	rt.audit(security.AuditEvent{
		Action:    security.AuditAdminUpdate,
		User:      adminEmail,
		IP:        ip,
		RequestID: security.GetRequestID(r.Context()),
		Detail:    name,
	})

	resp := map[string]any{"ok": true}
	if patch.Tools != nil {
		resp["effectiveTools"] = profiles.EffectiveTools(*patch.Tools)
	}
	writeJSON(w, http.StatusOK, resp)
}
