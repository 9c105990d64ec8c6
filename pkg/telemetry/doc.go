// Package telemetry records resize operations as Prometheus metrics and
// OpenTelemetry spans.
//
// Both Metrics and Tracer are nil-safe: a nil *Metrics records nothing and
// a nil *Tracer hands out no-op spans, so callers never need to guard them.
package telemetry
