// Package prometheus exposes portalAuth counters and the gateway latency
// histogram as a prometheus.Collector.
//
// [NewPrometheusExporter] wraps a [portalAuth.Manager]. Mount
// [PrometheusExporter.Handler] or call [PrometheusExporter.Register] on an
// existing registry. Counter names are prefixed portal_auth_ and end in
// _total; the histogram is portal_auth_gateway_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate manager state.
package prometheus
