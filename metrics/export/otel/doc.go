// Package otel publishes gatekeeper engine counters through an OpenTelemetry
// meter.
//
// [NewExporter] creates one Int64ObservableCounter per engine counter and a
// set of Int64ObservableGauge instruments per histogram bucket. A single
// callback reads the engine snapshot on each collection. The caller owns the
// MeterProvider.
package otel
