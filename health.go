package clawgateway

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openclaw/clawgateway/proxy"
)

// healthCacheTTL bounds probe frequency under load.
const healthCacheTTL = 5 * time.Second

// HealthStatus is the /health response body. Upstreams is keyed by role or
// profile name, with "up" or "down" per entry.
type HealthStatus struct {
	Status    string            `json:"status"`
	Mode      Mode              `json:"mode"`
	Providers []string          `json:"providers"`
	Upstreams map[string]string `json:"upstreams"`
}

type healthChecker struct {
	proxy *proxy.Proxy

	mu        sync.Mutex
	cached    *HealthStatus
	fetchedAt time.Time

	// now is overridable in tests.
	now func() time.Time
}

func newHealthChecker(p *proxy.Proxy) *healthChecker {
	return &healthChecker{proxy: p, now: time.Now}
}

// Status probes every configured upstream in parallel and reports the result.
// Upstreams sharing a URL are probed once. Results are cached for
// healthCacheTTL; concurrent callers inside the window share one probe round.
func (h *healthChecker) Status(ctx context.Context, cfg *Config, providerNames []string) *HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cached != nil && h.now().Sub(h.fetchedAt) < healthCacheTTL {
		return h.cached
	}

	upstreams := collectUpstreams(cfg)

	urls := map[string]struct{}{}
	for _, u := range upstreams {
		urls[u] = struct{}{}
	}
	reachable := make(map[string]bool, len(urls))
	var reachableMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for u := range urls {
		g.Go(func() error {
			ok := h.proxy.Ping(gctx, u, proxy.DefaultPingTimeout)
			reachableMu.Lock()
			reachable[u] = ok
			reachableMu.Unlock()
			return nil
		})
	}
	g.Wait()

	status := "ok"
	results := make(map[string]string, len(upstreams))
	for name, u := range upstreams {
		if reachable[u] {
			results[name] = "up"
		} else {
			results[name] = "down"
			status = "degraded"
		}
	}

	h.cached = &HealthStatus{
		Status:    status,
		Mode:      cfg.Mode,
		Providers: providerNames,
		Upstreams: results,
	}
	h.fetchedAt = h.now()
	return h.cached
}

// collectUpstreams maps each role and profile name visible in the active mode
// to its upstream URL.
func collectUpstreams(cfg *Config) map[string]string {
	out := map[string]string{}
	if cfg.EnterpriseEnabled() {
		for name, rc := range cfg.Roles {
			if rc.Upstream != "" {
				out[name] = rc.Upstream
			}
		}
	}
	if cfg.MarketplaceEnabled() {
		for name, pc := range cfg.Profiles {
			if pc.Upstream != "" {
				out[name] = pc.Upstream
			}
		}
	}
	return out
}
