package connection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewHTTPClient_NormalizesBaseURL(t *testing.T) {
	tests := []struct {
		name       string
		server     string
		wantPrefix string
	}{
		{"with http prefix", "http://localhost:5080", "http://localhost:5080"},
		{"with https prefix", "https://localhost:5080", "https://localhost:5080"},
		{"without prefix", "localhost:5080", "http://localhost:5080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewHTTPClient(tt.server, "", "alice")
			if client.BaseURL() != tt.wantPrefix {
				t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), tt.wantPrefix)
			}
		})
	}
}

func TestHTTPClient_Get_SetsTrustedUserHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Authenticated-User") != "alice" {
			t.Errorf("X-Authenticated-User = %q, want alice", r.Header.Get("X-Authenticated-User"))
		}
		if r.URL.Path != "/token" {
			t.Errorf("path = %q, want /token", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"code":"OK","message":"Success","data":{"cmd":"run"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "alice")
	resp, err := client.Get(context.Background(), "/token")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	var data map[string]any
	if err := ParseResponse(resp, &data); err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if data["cmd"] != "run" {
		t.Errorf("data = %v, want cmd=run", data)
	}
}

func TestHTTPClient_CustomUserHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-User") != "bob" {
			t.Errorf("X-Forwarded-User = %q, want bob", r.Header.Get("X-Forwarded-User"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"code":"OK","message":"Success"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "X-Forwarded-User", "bob")
	resp, err := client.Get(context.Background(), "/tokens")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := ParseResponse(resp, nil); err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
}

func TestHTTPClient_Post_SendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["cmd"] != "run" {
			t.Errorf("body = %v, want cmd=run", body)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"code":"OK","message":"token updated"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "alice")
	resp, err := client.Post(context.Background(), "/token?token=t1", map[string]any{"cmd": "run"})
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if err := ParseResponse(resp, nil); err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
}

func TestParseResponse_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"TR-4040","message":"token not found"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "alice")
	resp, err := client.Get(context.Background(), "/token?token=missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := ParseResponse(resp, nil); err == nil {
		t.Fatal("expected error from ParseResponse on 404")
	}
}
