package proxy

import (
	"context"
	"io"
	"net/http"
	"time"
)

// DefaultPingTimeout bounds an upstream health probe.
const DefaultPingTimeout = 3 * time.Second

// Ping classifies an upstream as up or down with a HEAD request. Any response
// counts as up; the body is drained but not interpreted. A zero timeout uses
// DefaultPingTimeout.
func (p *Proxy) Ping(ctx context.Context, upstream string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, upstream, nil)
	if err != nil {
		return false
	}

	resp, err := p.transport.RoundTrip(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return true
}
