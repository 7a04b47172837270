// Package metrics exposes the Prometheus gauges/histograms and the liveness
// state consulted by GET /healthz and GET /metrics/prometheus.
//
// Collector samples the cluster registry and the wolfrun service registry on
// a 15s interval so a scrape never contends with their locks directly.
package metrics
