package localserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type stubReporter struct {
	owners []string
	err    error
}

func (s stubReporter) ListOwners(context.Context) ([]string, error) {
	return s.owners, s.err
}

func TestHandler_Status(t *testing.T) {
	h := NewHandler(stubReporter{owners: []string{"a", "b", "c"}}, nil)

	var buf bytes.Buffer
	if err := h.Execute(&buf, "status", nil); err != nil {
		t.Fatalf("Execute(status) error = %v", err)
	}

	var status Status
	if err := json.Unmarshal(buf.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.OwnerCount != 3 {
		t.Errorf("OwnerCount = %d, want 3", status.OwnerCount)
	}
}

func TestHandler_Status_NilReporter(t *testing.T) {
	h := NewHandler(nil, nil)

	var buf bytes.Buffer
	if err := h.Execute(&buf, "status", nil); err != nil {
		t.Fatalf("Execute(status) error = %v", err)
	}

	var status Status
	if err := json.Unmarshal(buf.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.OwnerCount != 0 {
		t.Errorf("OwnerCount = %d, want 0", status.OwnerCount)
	}
}

func TestHandler_Status_ReporterError(t *testing.T) {
	h := NewHandler(stubReporter{err: errors.New("boom")}, nil)

	var buf bytes.Buffer
	if err := h.Execute(&buf, "status", nil); err == nil {
		t.Fatal("expected error from Execute(status)")
	}
}

func TestHandler_Shutdown(t *testing.T) {
	triggered := make(chan struct{})
	h := NewHandler(nil, func() { close(triggered) })

	var buf bytes.Buffer
	if err := h.Execute(&buf, "shutdown", nil); err != nil {
		t.Fatalf("Execute(shutdown) error = %v", err)
	}

	<-triggered

	if buf.String() != "shutdown triggered\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestHandler_UnknownCommand(t *testing.T) {
	h := NewHandler(nil, nil)

	var buf bytes.Buffer
	if err := h.Execute(&buf, "bogus", nil); err != nil {
		t.Fatalf("Execute(bogus) error = %v", err)
	}

	if buf.String() != "unknown command: bogus\n" {
		t.Errorf("output = %q", buf.String())
	}
}
