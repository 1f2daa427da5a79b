// Package tracer provides distributed tracing for the token registry.
//
// This package implements OpenTelemetry tracing support:
//
//   - otel.go: OpenTelemetry provider configuration
//
// Features (planned):
//
//   - Span creation and propagation
//   - Context injection/extraction
//   - Multiple exporter support (Jaeger, OTLP)
//   - Sampling configuration
//
// Note: This package is currently a placeholder for future implementation.
//
// @req RQ-0403
// @design DS-0402
package tracer
