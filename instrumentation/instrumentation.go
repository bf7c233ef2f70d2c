package instrumentation

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceName is the otel service name used when none is configured.
const DefaultServiceName = "clawgateway"

// Config holds instrumentation configuration.
type Config struct {
	// ServiceName identifies the gateway in exported telemetry.
	ServiceName string

	// ServiceVersion is the gateway build version.
	ServiceVersion string

	// Enabled controls whether instrumentation is active. When false, no-op
	// providers are used and recording costs nothing.
	Enabled bool

	// MeterProvider supplies the metric backend. Nil with Enabled uses the
	// global default only if set by the embedding application; otherwise noop.
	MeterProvider metric.MeterProvider

	// TracerProvider supplies the trace backend, same rules as MeterProvider.
	TracerProvider trace.TracerProvider
}

// Instrumentation owns the gateway's meters and pre-built instruments.
type Instrumentation struct {
	resource *resource.Resource
	meter    metric.Meter
	tracer   trace.Tracer
	metrics  *Metrics
}

// New creates instrumentation. A disabled config returns a fully functional
// no-op instance, never nil.
func New(cfg Config) (*Instrumentation, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}

	mp := cfg.MeterProvider
	tp := cfg.TracerProvider
	if !cfg.Enabled || mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	if !cfg.Enabled || tp == nil {
		tp = tracenoop.NewTracerProvider()
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build otel resource: %w", err)
	}

	inst := &Instrumentation{
		resource: res,
		meter:    mp.Meter("github.com/openclaw/clawgateway"),
		tracer:   tp.Tracer("github.com/openclaw/clawgateway"),
	}
	inst.metrics, err = newMetrics(inst.meter)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// Metrics returns the pre-built metric instruments.
func (i *Instrumentation) Metrics() *Metrics { return i.metrics }

// Tracer returns the gateway tracer.
func (i *Instrumentation) Tracer() trace.Tracer { return i.tracer }
