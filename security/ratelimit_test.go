package security

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	rl := NewRateLimiterWithConfig(time.Minute, 10, nil)
	defer rl.Stop()

	for i := 0; i < 10; i++ {
		if res := rl.Check("1.2.3.4"); !res.Allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}

	res := rl.Check("1.2.3.4")
	if res.Allowed {
		t.Fatal("11th request allowed, want denied")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > 60 {
		t.Errorf("retryAfter = %d, want in (0, 60]", res.RetryAfter)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiterWithConfig(time.Minute, 2, nil)
	defer rl.Stop()

	rl.Check("a")
	rl.Check("a")
	if res := rl.Check("a"); res.Allowed {
		t.Error("key a over budget but allowed")
	}
	if res := rl.Check("b"); !res.Allowed {
		t.Error("fresh key b denied")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiterWithConfig(time.Minute, 1, nil)
	defer rl.Stop()

	base := time.Now()
	rl.now = func() time.Time { return base }

	rl.Check("k")
	if res := rl.Check("k"); res.Allowed {
		t.Fatal("second request in window allowed")
	}

	rl.now = func() time.Time { return base.Add(time.Minute + time.Second) }
	if res := rl.Check("k"); !res.Allowed {
		t.Fatal("request after window expiry denied")
	}
}

func TestRateLimiterRetryAfterRoundsUp(t *testing.T) {
	rl := NewRateLimiterWithConfig(time.Minute, 1, nil)
	defer rl.Stop()

	base := time.Now()
	rl.now = func() time.Time { return base }
	rl.Check("k")

	// 100ms into the window; 59.9s remain so the header must say 60.
	rl.now = func() time.Time { return base.Add(100 * time.Millisecond) }
	res := rl.Check("k")
	if res.Allowed {
		t.Fatal("expected denial")
	}
	if res.RetryAfter != 60 {
		t.Errorf("retryAfter = %d, want 60", res.RetryAfter)
	}
}

func TestRateLimiterSweepEvictsExpired(t *testing.T) {
	rl := NewRateLimiterWithConfig(time.Minute, 10, nil)
	defer rl.Stop()

	base := time.Now()
	rl.now = func() time.Time { return base }
	rl.Check("expired")
	rl.Check("fresh")

	rl.now = func() time.Time { return base.Add(2 * time.Minute) }
	rl.Check("fresh") // restarts fresh's window at the new time
	rl.Sweep()

	stats := rl.Stats()
	if stats.CurrentEntries != 1 {
		t.Errorf("current entries = %d, want 1", stats.CurrentEntries)
	}
}

func TestRateLimiterStats(t *testing.T) {
	rl := NewRateLimiterWithConfig(time.Minute, 1, nil)
	defer rl.Stop()

	rl.Check("k")
	rl.Check("k")
	rl.Check("k")

	stats := rl.Stats()
	if stats.TotalDenied != 2 {
		t.Errorf("totalDenied = %d, want 2", stats.TotalDenied)
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiterWithConfig(time.Minute, 1, nil)
	rl.Stop()
	rl.Stop()
}
