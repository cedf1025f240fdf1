// Package otel reports portalAuth counters and the gateway latency
// histogram through an OpenTelemetry meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter. The
// gateway latency histogram becomes a cumulative bucket gauge keyed by an
// le attribute plus a count gauge. A single callback reads
// [portalAuth.Manager.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate manager state.
package otel
