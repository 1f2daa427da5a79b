// Package config defines the server configuration structure.
package config

// ServerConfig is the root configuration for the token-registry server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Registry RegistrySection `koanf:"registry"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Cluster  ClusterSection  `koanf:"cluster"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Local LocalConfig `koanf:"local"`
}

// HTTPConfig configures the HTTP server and the middleware chain NewRouter
// assembles in front of it.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// AuthTrustedUserHeader is the header an upstream identity proxy sets
	// with the caller's username.
	AuthTrustedUserHeader string `koanf:"auth_trusted_user_header"`

	// ReindexAllowList and RefreshAllowList are IP/CIDR allowlists gating
	// POST /tokens/reindex and POST /tokens/refresh. Empty means
	// unrestricted.
	ReindexAllowList []string `koanf:"reindex_allow_list"`
	RefreshAllowList []string `koanf:"refresh_allow_list"`

	// CORSAllowedOrigins is the list of allowed CORS origins. Empty
	// disables the CORS middleware entirely.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// GlobalRateLimit is the per-IP rate limit, requests/second. Zero
	// disables rate limiting.
	GlobalRateLimit int `koanf:"global_rate_limit"`

	// EnableAudit enables structured audit logging for every request.
	EnableAudit bool `koanf:"enable_audit"`

	// MetricsEnabled mounts GET /metrics with a Prometheus registry.
	MetricsEnabled bool `koanf:"metrics_enabled"`
}

// LocalConfig configures the local management socket (see
// internal/server/localserver).
type LocalConfig struct {
	Path string `koanf:"path"`
}

// RegistrySection configures the mutation pipeline's per-deployment
// tunables (service.RegistryConfig).
type RegistrySection struct {
	// Quota caps the number of live tokens a single owner may hold.
	// Zero or negative disables enforcement.
	Quota int `koanf:"quota"`

	// GlobalRoot is the root assigned to a brand-new token when no
	// existing record supplies one.
	GlobalRoot string `koanf:"global_root"`

	// DefaultCluster is returned by the cluster calculator when a
	// request carries no cluster-identifying Host header.
	DefaultCluster string `koanf:"default_cluster"`

	// HostToCluster maps a request Host header to a cluster name,
	// overriding DefaultCluster.
	HostToCluster map[string]string `koanf:"host_to_cluster"`

	// ReindexConcurrency is loaded and defaulted but not read by the
	// server; a reindex run processes owners one at a time.
	ReindexConcurrency int `koanf:"reindex_concurrency"`
}

// StorageSection configures the badgerkv storage engine.
type StorageSection struct {
	DataDir string `koanf:"data_dir"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// EncryptionKey, if set, enables authenticated at-rest encryption of
	// stored token records via pkg/crypto/adaptive.
	EncryptionKey string `koanf:"encryption_key"`
	TLSCAFile     string `koanf:"tls_ca_file"`
}

// ClusterSection configures gossip-based peer discovery
// (internal/server/discovery) and best-effort cache-invalidation
// broadcast to those peers.
type ClusterSection struct {
	// NodeID is the unique identifier for this cluster node.
	// If empty, a random ID is generated at startup.
	NodeID string `koanf:"node_id"`

	// GossipAddr is the Gossip TCP/UDP bind address (e.g., "192.168.1.10").
	GossipAddr string `koanf:"gossip_addr"`

	// GossipPort is the Gossip bind port (e.g., 7946).
	GossipPort int `koanf:"gossip_port"`

	// AdminAddr is this node's HTTP admin base URL, gossiped to peers so
	// they can resolve where to POST tokens/refresh.
	AdminAddr string `koanf:"admin_addr"`

	// Seeds is the list of seed node gossip addresses to join an existing
	// cluster. Empty means this node bootstraps alone.
	Seeds []string `koanf:"seeds"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
