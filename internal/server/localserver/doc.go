// Package localserver provides a Unix socket server for local management.
//
// This package implements a local-only management interface via Unix domain
// socket, for operators on the same host:
//
//   - "status": live owner count, version, and uptime
//   - "shutdown": triggers graceful process shutdown
//
// Security:
//
//   - Only accessible via Unix domain socket
//   - File system permissions control access
//   - No authentication token required (physical/local access only)
package localserver
