// Package logger provides structured logging for the token registry.
//
// Reserved for a zap-backed Logger implementation; the current
// implementation lives in logger.go and is built on log/slog.
package logger

