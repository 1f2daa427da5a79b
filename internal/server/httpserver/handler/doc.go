// Package handler provides HTTP request handlers for the token registry.
//
// This package contains handlers for all HTTP endpoints:
//
//   - token.go: GET/POST/DELETE /token
//   - tokens.go: GET /tokens, GET /token-owners
//   - refresh.go: POST /tokens/refresh, POST /tokens/reindex
//   - health.go: health and readiness checks
//
// All handlers follow a consistent pattern: parse and validate the
// request, call the registry, format and return the response.
package handler
