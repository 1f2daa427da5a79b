// Package config defines the server configuration structure.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/fleetkit/tokenreg/internal/core/service"
	"github.com/fleetkit/tokenreg/internal/server/discovery"
)

// ToDiscoveryConfig converts ServerConfig to discovery.Config, generating
// a NodeID when none was configured.
func ToDiscoveryConfig(cfg *ServerConfig, logger *slog.Logger) (discovery.Config, error) {
	if cfg == nil {
		return discovery.Config{}, fmt.Errorf("server config is nil")
	}

	nodeID := cfg.Cluster.NodeID
	if nodeID == "" {
		generated, err := generateNodeID()
		if err != nil {
			return discovery.Config{}, fmt.Errorf("generate node ID: %w", err)
		}
		nodeID = generated
		logger.Info("generated cluster node ID", "node_id", nodeID)
	}

	return discovery.Config{
		NodeID:    nodeID,
		BindAddr:  cfg.Cluster.GossipAddr,
		BindPort:  cfg.Cluster.GossipPort,
		AdminAddr: cfg.Cluster.AdminAddr,
		SeedNodes: cfg.Cluster.Seeds,
		Logger:    logger,
	}, nil
}

// ToClusterCalculator converts RegistrySection into a
// service.ClusterCalculator.
func ToClusterCalculator(cfg *ServerConfig) service.ClusterCalculator {
	defaultCluster := cfg.Registry.DefaultCluster
	if defaultCluster == "" {
		defaultCluster = DefaultDefaultCluster
	}
	return service.NewStaticClusterCalculator(defaultCluster, cfg.Registry.HostToCluster)
}

// generateNodeID generates a unique node identifier.
//
// Format: trnode-<16 hex chars> (e.g., "trnode-a1b2c3d4e5f67890")
func generateNodeID() (string, error) {
	buf := make([]byte, 8) // 8 bytes = 16 hex chars
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return "trnode-" + hex.EncodeToString(buf), nil
}
