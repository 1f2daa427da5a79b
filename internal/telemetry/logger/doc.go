// Package logger provides structured logging for the token registry.
//
// This package wraps the standard library log/slog for structured logging:
//
//   - logger.go: slog-backed Logger, configuration and package-level helpers
//   - zap.go: reserved placeholder; it holds no code
//   - context.go: Context-aware logging with request/trace IDs
//   - redact.go: Sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering
//   - Automatic sensitive data masking
//   - Context propagation for request tracing
package logger
