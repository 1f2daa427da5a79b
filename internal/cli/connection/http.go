// Package connection provides the HTTP client tokenreg-cli uses to talk to
// a tokenreg-server.
package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient talks to a tokenreg-server's HTTP API, impersonating a user
// through the trusted-user header the server's Auth middleware reads
// (§6 "caller identity via a trusted-proxy header").
type HTTPClient struct {
	baseURL    string
	client     *http.Client
	userHeader string
	user       string
}

// NewHTTPClient creates an HTTP client targeting server, identifying as
// user via userHeader (the same header name the server's Auth middleware
// is configured to trust).
func NewHTTPClient(server, userHeader, user string) *HTTPClient {
	baseURL := server
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if userHeader == "" {
		userHeader = "X-Authenticated-User"
	}

	return &HTTPClient{
		baseURL:    baseURL,
		userHeader: userHeader,
		user:       user,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.addHeaders(req)
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body. body may be nil.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.PostIfMatch(ctx, path, body, "")
}

// Delete performs a DELETE request. ifMatch, when non-empty, is sent as
// the If-Match header the registry's optimistic-concurrency check reads.
func (c *HTTPClient) Delete(ctx context.Context, path, ifMatch string) (*http.Response, error) {
	return c.doWithBody(ctx, http.MethodDelete, path, nil, ifMatch)
}

// PostIfMatch performs a POST request with a JSON body and an optional
// If-Match header.
func (c *HTTPClient) PostIfMatch(ctx context.Context, path string, body any, ifMatch string) (*http.Response, error) {
	return c.doWithBody(ctx, http.MethodPost, path, body, ifMatch)
}

func (c *HTTPClient) doWithBody(ctx context.Context, method, path string, body any, ifMatch string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ifMatch != "" {
		req.Header.Set("If-Match", ifMatch)
	}
	return c.client.Do(req)
}

func (c *HTTPClient) addHeaders(req *http.Request) {
	if c.user != "" {
		req.Header.Set(c.userHeader, c.user)
	}
	req.Header.Set("User-Agent", "tokenreg-cli/1.0")
}

// BaseURL returns the client's base URL.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// envelope mirrors handler.Response's wire shape without importing the
// handler package (which would pull the whole server dependency graph into
// the CLI binary).
type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ParseResponse decodes resp's JSON body into target, unwrapping the
// server's {code, message, data} envelope. If the response status
// indicates failure, it returns an error built from the envelope's
// code/message instead.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var raw json.RawMessage
	env := envelope{Data: &raw}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if env.Message != "" {
			return fmt.Errorf("[%s] %s", env.Code, env.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if target != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
