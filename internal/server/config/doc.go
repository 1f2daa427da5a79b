// Package config provides server configuration for the token registry.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation (data dir existence, quota sanity)
//   - sanitize.go: Log sanitization (hide sensitive values)
//   - cluster.go: ServerConfig -> discovery.Config / service.ClusterCalculator
//
// Configuration is loaded via internal/infra/confloader: a YAML file and
// TOKENREG_-prefixed environment variables layered over Default(). The
// server's only command-line flag for it is -config, which names the file.
package config
