package service

import "net/http"

// ClusterCalculator is the boot-time host-to-cluster capability consumed
// by the mutation pipeline to stamp a token's Metadata.Cluster (§4.5 step
// 1's "cluster = cluster-calculator(request)"; Design Note "Cluster
// calculator is a capability {default, calculate(request)}").
type ClusterCalculator interface {
	// Default returns the cluster used when a request carries no
	// cluster-identifying signal.
	Default() string

	// Calculate derives the cluster for r.
	Calculate(r *http.Request) string
}

// StaticClusterCalculator resolves a request's Host header against a
// static map loaded at boot, falling back to a default cluster.
type StaticClusterCalculator struct {
	defaultCluster string
	hostToCluster  map[string]string
}

// NewStaticClusterCalculator creates a StaticClusterCalculator.
// hostToCluster may be nil, in which case every request resolves to
// defaultCluster.
func NewStaticClusterCalculator(defaultCluster string, hostToCluster map[string]string) *StaticClusterCalculator {
	return &StaticClusterCalculator{defaultCluster: defaultCluster, hostToCluster: hostToCluster}
}

// Default implements ClusterCalculator.
func (c *StaticClusterCalculator) Default() string {
	return c.defaultCluster
}

// Calculate implements ClusterCalculator.
func (c *StaticClusterCalculator) Calculate(r *http.Request) string {
	if r == nil {
		return c.defaultCluster
	}
	if cluster, ok := c.hostToCluster[r.Host]; ok {
		return cluster
	}
	return c.defaultCluster
}
