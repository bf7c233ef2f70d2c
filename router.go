package clawgateway

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openclaw/clawgateway/instrumentation"
	"github.com/openclaw/clawgateway/profiles"
	"github.com/openclaw/clawgateway/providers"
	"github.com/openclaw/clawgateway/proxy"
	"github.com/openclaw/clawgateway/security"
	"github.com/openclaw/clawgateway/session"
)

// auditRingSize bounds the in-memory recent-events buffer shown on the admin
// dashboard. The full history lives in the audit file when one is configured.
const auditRingSize = 100

// RouterConfig carries the Router's collaborators. Nil fields get working
// defaults so tests can construct a Router from a Config alone.
type RouterConfig struct {
	Manager      *ConfigManager
	Renderer     PageRenderer
	Auditor      *security.Auditor
	Limiter      *security.RateLimiter
	AdminLimiter *security.AdminWriteLimiter
	Store        *profiles.Store
	Metrics      *instrumentation.Metrics
	Logger       *slog.Logger
}

// Router is the gateway's request dispatcher. It classifies each request into
// a public, auth, admin or proxy branch, gates the non-public branches on a
// verified session and hands terminal branches to the reverse proxy.
type Router struct {
	manager      *ConfigManager
	renderer     PageRenderer
	auditor      *security.Auditor
	limiter      *security.RateLimiter
	adminLimiter *security.AdminWriteLimiter
	store        *profiles.Store
	metrics      *instrumentation.Metrics
	logger       *slog.Logger
	proxy        *proxy.Proxy
	health       *healthChecker

	providersMu   sync.RWMutex
	providerList  []providers.Provider
	providerByKey map[string]providers.Provider

	auditMu   sync.Mutex
	auditRing []security.AuditEvent
}

// NewRouter builds a Router and its provider registry from the manager's
// current config. The registry is rebuilt on every successful config reload.
func NewRouter(rc RouterConfig) (*Router, error) {
	if rc.Manager == nil {
		return nil, fmt.Errorf("config manager is required")
	}
	logger := rc.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if rc.Renderer == nil {
		rc.Renderer = NewHTMLRenderer()
	}
	if rc.Limiter == nil {
		rc.Limiter = security.NewRateLimiter(logger)
	}
	if rc.AdminLimiter == nil {
		rc.AdminLimiter = security.NewAdminWriteLimiter(security.DefaultAdminWritesPerMinute, logger)
	}
	if rc.Store == nil {
		rc.Store = profiles.NewStore("", logger)
	}

	p := proxy.New(logger)
	r := &Router{
		manager:      rc.Manager,
		renderer:     rc.Renderer,
		auditor:      rc.Auditor,
		limiter:      rc.Limiter,
		adminLimiter: rc.AdminLimiter,
		store:        rc.Store,
		metrics:      rc.Metrics,
		logger:       logger,
		proxy:        p,
		health:       newHealthChecker(p),
	}

	if err := r.RebuildProviders(rc.Manager.Current()); err != nil {
		return nil, err
	}
	return r, nil
}

// RebuildProviders reconstructs the provider registry from a config snapshot.
// Called at construction and after each successful hot reload.
func (rt *Router) RebuildProviders(cfg *Config) error {
	list := make([]providers.Provider, 0, len(cfg.Auth))
	byKey := make(map[string]providers.Provider, len(cfg.Auth))

	for _, a := range cfg.Auth {
		p, err := providers.New(providers.Kind(a.Provider), providers.Config{
			ClientID:       a.ClientID,
			ClientSecret:   a.ClientSecret,
			Issuer:         a.Issuer,
			OrganizationID: a.OrganizationID,
			ConnectionID:   a.ConnectionID,
			RoleMapping:    a.RoleMapping,
		}, cfg.CallbackURL)
		if err != nil {
			return fmt.Errorf("failed to configure provider: %w", err)
		}
		list = append(list, p)
		byKey[p.Name()] = p
	}

	rt.providersMu.Lock()
	rt.providerList = list
	rt.providerByKey = byKey
	rt.providersMu.Unlock()
	return nil
}

func (rt *Router) provider(name string) (providers.Provider, bool) {
	rt.providersMu.RLock()
	defer rt.providersMu.RUnlock()
	p, ok := rt.providerByKey[name]
	return p, ok
}

func (rt *Router) providerNames() []string {
	rt.providersMu.RLock()
	defer rt.providersMu.RUnlock()
	names := make([]string, len(rt.providerList))
	for i, p := range rt.providerList {
		names[i] = p.Name()
	}
	return names
}

// RecentAudit returns a copy of the recent audit ring, newest last.
func (rt *Router) RecentAudit() []security.AuditEvent {
	rt.auditMu.Lock()
	defer rt.auditMu.Unlock()
	out := make([]security.AuditEvent, len(rt.auditRing))
	copy(out, rt.auditRing)
	return out
}

func (rt *Router) audit(e security.AuditEvent) {
	e = rt.auditor.Log(e)
	rt.auditMu.Lock()
	rt.auditRing = append(rt.auditRing, e)
	if len(rt.auditRing) > auditRingSize {
		rt.auditRing = rt.auditRing[len(rt.auditRing)-auditRingSize:]
	}
	rt.auditMu.Unlock()
}

// codec builds the token codec for the current snapshot. A secret rotation at
// reload time invalidates outstanding sessions, which is the intended effect.
func (rt *Router) codec(cfg *Config) *session.Codec {
	return session.NewCodec(cfg.SessionSecret)
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r = security.EnsureRequestID(w, r)
	cfg := rt.manager.Current()

	if isUpgradeRequest(r) {
		rt.handleUpgrade(w, r, cfg)
		return
	}

	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	route := classify(r.URL.Path)
	rt.dispatch(sw, r, cfg, route)

	if rt.metrics != nil {
		rt.metrics.RecordRequest(r.Context(), route, sw.status, float64(time.Since(start).Milliseconds()))
	}
}

// classify names the route branch for metrics and dispatch.
func classify(path string) string {
	switch {
	case path == "/login":
		return "login"
	case path == "/auth/callback":
		return "callback"
	case strings.HasPrefix(path, "/auth/"):
		return "auth"
	case path == "/logout":
		return "logout"
	case path == "/health":
		return "health"
	case path == "/dev/login":
		return "dev_login"
	case path == "/sitemap.xml" || path == "/robots.txt":
		return "public"
	case path == "/admin" || strings.HasPrefix(path, "/admin/"):
		return "admin"
	default:
		return "proxy"
	}
}

func (rt *Router) dispatch(w http.ResponseWriter, r *http.Request, cfg *Config, route string) {
	switch route {
	case "login":
		rt.handleLoginPage(w, r, cfg)
	case "callback":
		rt.handleCallback(w, r, cfg)
	case "auth":
		rt.handleAuthInitiate(w, r, cfg)
	case "logout":
		rt.handleLogout(w, r, cfg)
	case "health":
		rt.handleHealth(w, r, cfg)
	case "dev_login":
		rt.handleDevLogin(w, r, cfg)
	case "public":
		rt.handlePublic(w, r)
	case "admin":
		rt.handleAdmin(w, r, cfg)
	default:
		rt.handleProxy(w, r, cfg)
	}
}

// handleProxy gates the terminal proxy branch on a session, resolves the
// studio upstream, stamps identity headers and streams the response. HTML
// responses get the identity widget appended.
func (rt *Router) handleProxy(w http.ResponseWriter, r *http.Request, cfg *Config) {
	sess, ok := session.FromRequest(r, rt.codec(cfg))
	if !ok {
		if cfg.DevMode && cfg.DevUser != nil {
			rt.devAutoLogin(w, r, cfg)
			return
		}
		rt.unauthorized(w, r)
		return
	}

	// Refuse to proxy for sessions whose role or profile no longer resolves
	// to an upstream, e.g. after a config reload removed it.
	if _, err := TargetFor(cfg, sess); err != nil {
		rt.audit(security.AuditEvent{
			Action:    security.AuditAuthFailure,
			User:      sess.Email,
			Role:      badgeOf(sess),
			Provider:  sess.Provider,
			IP:        security.ClientIP(r),
			RequestID: security.GetRequestID(r.Context()),
			Detail:    err.Error(),
		})
		writeJSONError(w, http.StatusForbidden, "No upstream configured for your role/profile")
		return
	}

	// The gateway WebSocket endpoint only speaks upgrades.
	if r.URL.Path == GatewayWSPath {
		writeJSONError(w, http.StatusUpgradeRequired, "WebSocket upgrade required")
		return
	}

	upstream := cfg.StudioUpstream
	if upstream == "" {
		upstream = DefaultStudioUpstream
	}

	extra := ForwardHeaders(sess)
	extra.Set(security.RequestIDHeader, security.GetRequestID(r.Context()))

	widget := widgetFragment(sess, IsAdmin(cfg, sess))
	rt.proxy.Forward(w, r, upstream, extra, widget)

	rt.audit(security.AuditEvent{
		Action:    security.AuditProxy,
		User:      sess.Email,
		Role:      badgeOf(sess),
		Provider:  sess.Provider,
		Upstream:  upstream,
		IP:        security.ClientIP(r),
		RequestID: security.GetRequestID(r.Context()),
		Detail:    r.Method + " " + r.URL.Path,
	})
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request, cfg *Config) {
	status := rt.health.Status(r.Context(), cfg, rt.providerNames())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handlePublic serves the crawler endpoints. The gateway fronts a private
// application; both answers say so.
func (rt *Router) handlePublic(w http.ResponseWriter, r *http.Request) {
	security.SetPageHeaders(w, rt.manager.Current().CallbackURL)
	switch r.URL.Path {
	case "/robots.txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
	case "/sitemap.xml":
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"+
			`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></urlset>`+"\n")
	}
}

// checkRateLimit applies the auth-surface limiter. It answers the request
// itself when the check denies.
func (rt *Router) checkRateLimit(w http.ResponseWriter, r *http.Request) bool {
	ip := security.ClientIP(r)
	res := rt.limiter.Check(ip)
	if res.Allowed {
		return true
	}

	if rt.metrics != nil {
		rt.metrics.RateLimitExceeded.Add(r.Context(), 1)
	}
	rt.audit(security.AuditEvent{
		Action:    security.AuditRateLimited,
		IP:        ip,
		RequestID: security.GetRequestID(r.Context()),
		Detail:    r.URL.Path,
	})

	w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
	writeJSONError(w, http.StatusTooManyRequests, "Too Many Requests")
	return false
}

func badgeOf(s *session.Session) string {
	if s.Role != "" {
		return s.Role
	}
	return s.Profile
}

// unauthorized answers 401 as JSON for API-shaped requests and as a login
// redirect for browser navigation.
func (rt *Router) unauthorized(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/admin/api/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// redirectLoginError sends the browser back to the login page with a short
// machine-readable error code. Codes, not messages: nothing provider-supplied
// reaches the query string.
func redirectLoginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+code, http.StatusFound)
}

// statusWriter records the response status for metrics. It forwards Hijack
// and Flush so proxied responses keep streaming.
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wrote {
		w.status = status
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
