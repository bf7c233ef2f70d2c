package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the gateway's metric instruments.
type Metrics struct {
	// HTTP layer
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram

	// Auth surface
	AuthStarted       metric.Int64Counter
	CallbacksTotal    metric.Int64Counter
	LoginsTotal       metric.Int64Counter
	RateLimitExceeded metric.Int64Counter

	// Proxy transport
	ProxiedRequests      metric.Int64Counter
	UpstreamErrors       metric.Int64Counter
	WebSocketConnections metric.Int64Counter

	// Providers
	ProviderExchanges metric.Int64Counter
	ProviderErrors    metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.RequestsTotal, err = meter.Int64Counter(
		"gateway.http.requests.total",
		metric.WithDescription("Total HTTP requests handled"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}

	if m.RequestDuration, err = meter.Float64Histogram(
		"gateway.http.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	if m.AuthStarted, err = meter.Int64Counter(
		"gateway.auth.started",
		metric.WithDescription("OAuth flows initiated"),
		metric.WithUnit("{flow}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create auth started counter: %w", err)
	}

	if m.CallbacksTotal, err = meter.Int64Counter(
		"gateway.auth.callbacks",
		metric.WithDescription("OAuth callbacks processed"),
		metric.WithUnit("{callback}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create callbacks counter: %w", err)
	}

	if m.LoginsTotal, err = meter.Int64Counter(
		"gateway.auth.logins",
		metric.WithDescription("Successful logins"),
		metric.WithUnit("{login}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}

	if m.RateLimitExceeded, err = meter.Int64Counter(
		"gateway.ratelimit.exceeded",
		metric.WithDescription("Requests denied by the auth-surface rate limiter"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit counter: %w", err)
	}

	if m.ProxiedRequests, err = meter.Int64Counter(
		"gateway.proxy.requests",
		metric.WithDescription("Requests forwarded to an upstream"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create proxied requests counter: %w", err)
	}

	if m.UpstreamErrors, err = meter.Int64Counter(
		"gateway.proxy.upstream.errors",
		metric.WithDescription("Upstream connection failures"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create upstream errors counter: %w", err)
	}

	if m.WebSocketConnections, err = meter.Int64Counter(
		"gateway.proxy.websocket.connections",
		metric.WithDescription("WebSocket sessions spliced"),
		metric.WithUnit("{connection}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create websocket counter: %w", err)
	}

	if m.ProviderExchanges, err = meter.Int64Counter(
		"gateway.provider.exchanges",
		metric.WithDescription("Provider callback exchanges attempted"),
		metric.WithUnit("{exchange}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create provider exchanges counter: %w", err)
	}

	if m.ProviderErrors, err = meter.Int64Counter(
		"gateway.provider.errors",
		metric.WithDescription("Provider callback exchanges failed"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create provider errors counter: %w", err)
	}

	return m, nil
}

// RecordRequest records one handled request.
func (m *Metrics) RecordRequest(ctx context.Context, route string, status int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.RequestsTotal.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, durationMs, attrs)
}

// RecordExchange records a provider callback exchange outcome.
func (m *Metrics) RecordExchange(ctx context.Context, provider string, err error) {
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	m.ProviderExchanges.Add(ctx, 1, attrs)
	if err != nil {
		m.ProviderErrors.Add(ctx, 1, attrs)
	}
}
