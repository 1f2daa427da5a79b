// Package metric provides Prometheus metrics for the token registry.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: metrics registry and HTTP handler
//   - collector.go: a Collector reporting live gauge values pulled from a
//     lister at scrape time, rather than pushed incrementally
//
// Metrics cover token mutations (§10 "creates / updates / deletes /
// quota-rejections / precondition-failures"), per-owner lock contention,
// reindex runs, and the HTTP request surface. They are exposed at /metrics
// in Prometheus exposition format.
//
// Registry only defines and registers these instruments; no code outside
// this package records into the token, lock, reindex or HTTP instruments,
// so they stay at zero. The values that change at runtime are Collector's
// owner gauge and the Go runtime and process collectors.
package metric
