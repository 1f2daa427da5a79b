package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RefreshMessage is the body broadcast to `tokens/refresh` (§4.8 "Peer
// refresh"). Zero values are omitted so a receiver can distinguish "not
// present" from "present but empty".
type RefreshMessage struct {
	Token string `json:"token,omitempty"`
	Owner string `json:"owner,omitempty"`
	Index bool   `json:"index,omitempty"`
}

// Peer is one sibling replica reachable for the refresh broadcast.
type Peer struct {
	NodeID    string
	AdminAddr string // base URL, e.g. "http://10.0.1.5:8090"
}

// PeerEnumerator supplies the current sibling set (§6 "Peer enumeration is
// external"). internal/server/discovery.Discovery implements it directly
// through its Members method.
type PeerEnumerator interface {
	Members() []Peer
}

// PeerBroadcaster fans a RefreshMessage out to every peer (§4.8: "the
// broadcast is best-effort: a failed peer is logged; the originating
// operation still succeeds").
type PeerBroadcaster interface {
	Broadcast(ctx context.Context, msg RefreshMessage)
}

// HTTPPeerBroadcaster POSTs RefreshMessage to every peer's
// tokens/refresh endpoint concurrently, grounded on the fan-out shape of
// internal/server/clusterserver/discovery.go's membership enumeration,
// adapted from cluster-membership consumption to an HTTP fan-out client.
type HTTPPeerBroadcaster struct {
	peers    PeerEnumerator
	client   *http.Client
	logger   *slog.Logger
	path     string
	failures prometheus.Counter
}

// NewHTTPPeerBroadcaster creates an HTTPPeerBroadcaster. path is the
// receiving endpoint on each peer, e.g. "/tokens/refresh".
func NewHTTPPeerBroadcaster(peers PeerEnumerator, path string, logger *slog.Logger) *HTTPPeerBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPPeerBroadcaster{
		peers:  peers,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
		path:   path,
	}
}

// RegisterMetrics registers the peer-broadcast-failure counter.
func (b *HTTPPeerBroadcaster) RegisterMetrics(registry *prometheus.Registry) *HTTPPeerBroadcaster {
	b.failures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tokenreg",
		Subsystem: "peers",
		Name:      "broadcast_failures_total",
		Help:      "Peer-refresh broadcasts that failed to reach a sibling replica.",
	})
	registry.MustRegister(b.failures)
	return b
}

// Broadcast implements PeerBroadcaster. It blocks until every peer request
// has returned or timed out (§5 "peer-refresh broadcast blocks until all
// peer requests return or time out"), but never returns an error: failures
// are logged and counted, never propagated to the caller (§7).
func (b *HTTPPeerBroadcaster) Broadcast(ctx context.Context, msg RefreshMessage) {
	if b.peers == nil {
		return
	}
	peers := b.peers.Members()
	if len(peers) == 0 {
		return
	}

	body, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("peer refresh: failed to encode message", "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, peer := range peers {
		wg.Add(1)
		go func(peer Peer) {
			defer wg.Done()
			b.sendOne(ctx, peer, body)
		}(peer)
	}
	wg.Wait()
}

func (b *HTTPPeerBroadcaster) sendOne(ctx context.Context, peer Peer, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peer.AdminAddr+b.path, bytes.NewReader(body))
	if err != nil {
		b.logFailure(peer, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.logFailure(peer, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b.logFailure(peer, nil)
	}
}

func (b *HTTPPeerBroadcaster) logFailure(peer Peer, err error) {
	b.logger.Warn("peer refresh broadcast failed", "node_id", peer.NodeID, "addr", peer.AdminAddr, "error", err)
	if b.failures != nil {
		b.failures.Inc()
	}
}
