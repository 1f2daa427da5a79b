// Package discovery provides node discovery using the Gossip protocol.
package discovery

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/memberlist"

	"github.com/fleetkit/tokenreg/internal/core/service"
)

// Discovery handles node discovery and membership using Gossip protocol.
type Discovery struct {
	config     *memberlist.Config
	memberList *memberlist.Memberlist
	logger     *slog.Logger
	shutdown   bool

	onJoin  func(nodeID, addr string)
	onLeave func(nodeID string)
}

// Config configures the discovery mechanism.
type Config struct {
	// NodeID is the unique node identifier.
	NodeID string

	// BindAddr is the address to bind for gossip communication.
	BindAddr string

	// BindPort is the port to bind for gossip communication.
	BindPort int

	// AdminAddr is this node's HTTP admin base URL (e.g.
	// "http://10.0.1.5:8090"). It is stored in node metadata so peers can
	// resolve where to POST tokens/refresh (§4.8).
	AdminAddr string

	// SeedNodes are the initial nodes to join.
	SeedNodes []string

	Logger *slog.Logger
}

// New creates a new discovery instance.
func New(cfg Config) (*Discovery, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	mlConfig := memberlist.DefaultLANConfig()
	mlConfig.Name = cfg.NodeID
	mlConfig.BindAddr = cfg.BindAddr
	mlConfig.BindPort = cfg.BindPort

	if cfg.AdminAddr != "" {
		mlConfig.Delegate = &metadataDelegate{adminAddr: []byte(cfg.AdminAddr)}
	}

	mlConfig.LogOutput = &slogWriter{logger: cfg.Logger}

	d := &Discovery{config: mlConfig, logger: cfg.Logger}
	mlConfig.Events = &eventDelegate{discovery: d}

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("create memberlist: %w", err)
	}
	d.memberList = ml

	if len(cfg.SeedNodes) > 0 {
		n, err := ml.Join(cfg.SeedNodes)
		if err != nil {
			ml.Shutdown()
			return nil, fmt.Errorf("join seed nodes: %w", err)
		}
		cfg.Logger.Info("joined cluster", "node_id", cfg.NodeID, "seed_nodes", cfg.SeedNodes, "joined_count", n)
	} else {
		cfg.Logger.Info("started discovery (bootstrap mode)", "node_id", cfg.NodeID)
	}

	return d, nil
}

// Members implements service.PeerEnumerator, returning every known sibling
// (the local node included) resolved to its HTTP admin address. A member
// with no admin-address metadata (not yet gossiped, or mid-join) is
// omitted rather than broadcast to blindly.
func (d *Discovery) Members() []service.Peer {
	if d.memberList == nil {
		return nil
	}
	nodes := d.memberList.Members()
	peers := make([]service.Peer, 0, len(nodes))
	for _, n := range nodes {
		if len(n.Meta) == 0 {
			continue
		}
		peers = append(peers, service.Peer{NodeID: n.Name, AdminAddr: string(n.Meta)})
	}
	return peers
}

// Leave gracefully leaves the cluster.
func (d *Discovery) Leave() error {
	if d.memberList == nil {
		return nil
	}
	if err := d.memberList.Leave(0); err != nil {
		d.logger.Error("failed to leave cluster", "error", err)
		return err
	}
	d.logger.Info("left cluster")
	return nil
}

// Shutdown stops the discovery mechanism.
func (d *Discovery) Shutdown() error {
	if d.shutdown || d.memberList == nil {
		return nil
	}
	d.shutdown = true
	if err := d.memberList.Shutdown(); err != nil {
		return fmt.Errorf("shutdown memberlist: %w", err)
	}
	d.logger.Info("discovery shutdown complete")
	return nil
}

// OnJoin registers a callback for node join events.
func (d *Discovery) OnJoin(fn func(nodeID, addr string)) { d.onJoin = fn }

// OnLeave registers a callback for node leave events.
func (d *Discovery) OnLeave(fn func(nodeID string)) { d.onLeave = fn }

// LocalNode returns the local node information.
func (d *Discovery) LocalNode() *memberlist.Node {
	if d.memberList == nil {
		return nil
	}
	return d.memberList.LocalNode()
}

// eventDelegate implements memberlist.EventDelegate.
type eventDelegate struct {
	discovery *Discovery
}

func (e *eventDelegate) NotifyJoin(node *memberlist.Node) {
	adminAddr := string(node.Meta)
	e.discovery.logger.Info("node joined", "node_id", node.Name, "admin_addr", adminAddr)
	if e.discovery.onJoin != nil {
		e.discovery.onJoin(node.Name, adminAddr)
	}
}

func (e *eventDelegate) NotifyLeave(node *memberlist.Node) {
	e.discovery.logger.Info("node left", "node_id", node.Name, "addr", node.Addr.String())
	if e.discovery.onLeave != nil {
		e.discovery.onLeave(node.Name)
	}
}

func (e *eventDelegate) NotifyUpdate(node *memberlist.Node) {
	e.discovery.logger.Debug("node updated", "node_id", node.Name, "addr", node.Addr.String())
}

// slogWriter adapts slog.Logger to io.Writer for memberlist.
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Write(p []byte) (n int, err error) {
	w.logger.Debug(string(p))
	return len(p), nil
}

// metadataDelegate publishes this node's HTTP admin address to peers.
type metadataDelegate struct {
	adminAddr []byte
}

func (m *metadataDelegate) NodeMeta(limit int) []byte {
	if len(m.adminAddr) > limit {
		return m.adminAddr[:limit]
	}
	return m.adminAddr
}

func (m *metadataDelegate) NotifyMsg([]byte)                       {}
func (m *metadataDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (m *metadataDelegate) LocalState(join bool) []byte            { return nil }
func (m *metadataDelegate) MergeRemoteState(buf []byte, join bool) {}
