package security

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultAdminWritesPerMinute caps admin config mutations per IP.
	DefaultAdminWritesPerMinute = 30

	// defaultAdminLimiterIdle is how long an idle per-IP limiter is kept.
	defaultAdminLimiterIdle = 30 * time.Minute
)

// adminLimiterEntry tracks one IP's token bucket and its last use.
type adminLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// AdminWriteLimiter throttles admin config mutations per client IP with a
// token bucket. The auth surface uses the fixed-window RateLimiter; this one
// protects the admin API, whose writes hit the filesystem.
type AdminWriteLimiter struct {
	mu       sync.Mutex
	limiters map[string]*adminLimiterEntry

	perMinute int
	logger    *slog.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewAdminWriteLimiter creates an admin write limiter and starts its idle
// entry cleanup.
func NewAdminWriteLimiter(perMinute int, logger *slog.Logger) *AdminWriteLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	if perMinute <= 0 {
		perMinute = DefaultAdminWritesPerMinute
	}

	l := &AdminWriteLimiter{
		limiters:  make(map[string]*adminLimiterEntry),
		perMinute: perMinute,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow reports whether one admin write from the given IP may proceed.
func (l *AdminWriteLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &adminLimiterEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute),
		}
		l.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter.Allow()
}

func (l *AdminWriteLimiter) cleanupLoop() {
	ticker := time.NewTicker(defaultAdminLimiterIdle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *AdminWriteLimiter) cleanup() {
	cutoff := time.Now().Add(-defaultAdminLimiterIdle)

	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, entry := range l.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}

// Stop halts the cleanup goroutine. Safe to call more than once.
func (l *AdminWriteLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}
