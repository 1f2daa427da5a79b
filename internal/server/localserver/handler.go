// Package localserver provides the local management server.
package localserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fleetkit/tokenreg/internal/infra/buildinfo"
)

// StatusReporter supplies the live counters the "status" command reports.
// service.Registry satisfies this via ListOwners.
type StatusReporter interface {
	ListOwners(ctx context.Context) ([]string, error)
}

// Status is the JSON payload returned by the "status" command.
type Status struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	OwnerCount int    `json:"owner_count"`
	UptimeSecs int64  `json:"uptime_secs"`
}

// Handler handles local management commands.
type Handler struct {
	reporter StatusReporter
	shutdown func()
	started  time.Time
}

// NewHandler creates a new Handler. reporter may be nil, in which case
// "status" reports owner_count as 0. shutdownFn may be nil, in which case
// "shutdown" is a no-op.
func NewHandler(reporter StatusReporter, shutdownFn func()) *Handler {
	return &Handler{reporter: reporter, shutdown: shutdownFn, started: time.Now()}
}

// Execute executes a local management command.
func (h *Handler) Execute(w io.Writer, cmd string, args []string) error {
	switch cmd {
	case "status":
		return h.handleStatus(w)
	case "shutdown":
		return h.handleShutdown(w)
	default:
		_, err := w.Write([]byte("unknown command: " + cmd + "\n"))
		return err
	}
}

func (h *Handler) handleStatus(w io.Writer) error {
	status := Status{
		Version:    buildinfo.Version,
		Commit:     buildinfo.Commit,
		UptimeSecs: int64(time.Since(h.started).Seconds()),
	}

	if h.reporter != nil {
		owners, err := h.reporter.ListOwners(context.Background())
		if err != nil {
			return fmt.Errorf("list owners: %w", err)
		}
		status.OwnerCount = len(owners)
	}

	return json.NewEncoder(w).Encode(status)
}

func (h *Handler) handleShutdown(w io.Writer) error {
	if _, err := w.Write([]byte("shutdown triggered\n")); err != nil {
		return err
	}
	if h.shutdown != nil {
		go h.shutdown()
	}
	return nil
}
