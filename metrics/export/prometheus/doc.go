// Package prometheus exposes gatekeeper engine counters as a Prometheus
// collector.
//
// [NewExporter] wraps an engine; [Exporter.Handler] mounts it on a private
// registry. Counters are named gatekeeper_*_total and the one histogram is
// gatekeeper_validate_latency_seconds.
package prometheus
