// Package instrumentation provides OpenTelemetry metrics for the gateway.
// When disabled it wires no-op providers, so instrumented call sites carry no
// overhead and no conditional logic.
package instrumentation
