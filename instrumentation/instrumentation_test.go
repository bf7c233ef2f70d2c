package instrumentation

import (
	"context"
	"testing"
)

func TestNewDisabledUsesNoopProviders(t *testing.T) {
	inst, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if inst.Metrics() == nil {
		t.Fatal("nil metrics")
	}
	if inst.Tracer() == nil {
		t.Fatal("nil tracer")
	}

	// Counters must be safe to use when disabled.
	inst.Metrics().RequestsTotal.Add(context.Background(), 1)
	inst.Metrics().RecordRequest(context.Background(), "proxy", 200, 1.5)
	inst.Metrics().RecordExchange(context.Background(), "okta", nil)
}

func TestNewDefaultsServiceName(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if inst == nil {
		t.Fatal("nil instrumentation")
	}
}
