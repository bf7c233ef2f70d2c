package security

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultWindow is the default fixed rate-limit window.
	DefaultWindow = time.Minute

	// DefaultMaxRequests is the default number of requests allowed per window.
	DefaultMaxRequests = 10

	// defaultSweepInterval is how often expired windows are evicted.
	defaultSweepInterval = 5 * time.Minute
)

// windowEntry is one client's current fixed window.
type windowEntry struct {
	count   int
	resetAt time.Time
}

// Result is the outcome of a rate-limit check.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// RetryAfter is the whole number of seconds until the window resets,
	// rounded up. Only meaningful when Allowed is false; always positive then.
	RetryAfter int
}

// RateLimiter is a fixed-window request counter keyed by client IP. Entries
// are created lazily per key and evicted by a background sweep once their
// window has passed, bounding memory. The sweep never blocks an in-flight
// check beyond ordinary mutex contention.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*windowEntry

	window        time.Duration
	maxRequests   int
	sweepInterval time.Duration
	logger        *slog.Logger
	stopSweep     chan struct{}
	stopOnce      sync.Once

	// now is overridable in tests.
	now func() time.Time

	// Statistics
	totalDenied int64
	totalSweeps int64
}

// NewRateLimiter creates a rate limiter with the default 10-per-minute window.
func NewRateLimiter(logger *slog.Logger) *RateLimiter {
	return NewRateLimiterWithConfig(DefaultWindow, DefaultMaxRequests, logger)
}

// NewRateLimiterWithConfig creates a rate limiter with a custom window and
// per-window request budget, and starts its background sweep.
func NewRateLimiterWithConfig(window time.Duration, maxRequests int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = DefaultWindow
		logger.Warn("Invalid rate limit window, using default", "window", window)
	}
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
		logger.Warn("Invalid rate limit max, using default", "maxRequests", maxRequests)
	}

	rl := &RateLimiter{
		windows:       make(map[string]*windowEntry),
		window:        window,
		maxRequests:   maxRequests,
		sweepInterval: defaultSweepInterval,
		logger:        logger,
		stopSweep:     make(chan struct{}),
		now:           time.Now,
	}

	go rl.sweepLoop()

	return rl
}

// Check counts one request for the given key and reports whether it is
// allowed. When the current window has expired (or none exists) a fresh one
// is started. The first request over the budget is denied with the seconds
// remaining until the window resets.
func (rl *RateLimiter) Check(key string) Result {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.windows[key]
	if !ok || now.After(entry.resetAt) {
		entry = &windowEntry{resetAt: now.Add(rl.window)}
		rl.windows[key] = entry
	}

	entry.count++

	if entry.count > rl.maxRequests {
		rl.totalDenied++
		retryAfter := int((entry.resetAt.Sub(now) + time.Second - 1) / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
		return Result{Allowed: false, RetryAfter: retryAfter}
	}
	return Result{Allowed: true}
}

// sweepLoop periodically evicts expired windows to bound memory.
func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Sweep()
		case <-rl.stopSweep:
			return
		}
	}
}

// Sweep removes every window whose reset time has passed.
func (rl *RateLimiter) Sweep() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, entry := range rl.windows {
		if now.After(entry.resetAt) {
			delete(rl.windows, key)
			removed++
		}
	}

	if removed > 0 {
		rl.totalSweeps++
		rl.logger.Debug("Rate limiter sweep completed",
			"removed", removed,
			"remaining", len(rl.windows),
			"total_sweeps", rl.totalSweeps)
	}
}

// Stop halts the background sweep. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopSweep) })
}

// RateLimiterStats holds counters for monitoring.
type RateLimiterStats struct {
	CurrentEntries int   // windows currently tracked
	TotalDenied    int64 // requests denied since start
	TotalSweeps    int64 // sweep passes that evicted at least one window
}

// Stats returns a snapshot of the limiter's counters.
func (rl *RateLimiter) Stats() RateLimiterStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return RateLimiterStats{
		CurrentEntries: len(rl.windows),
		TotalDenied:    rl.totalDenied,
		TotalSweeps:    rl.totalSweeps,
	}
}
