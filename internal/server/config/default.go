// Package config defines the server configuration structure.
package config

// Default configuration values.
const (
	DefaultHTTPAddr    = "127.0.0.1:5080"
	DefaultHTTPSAddr   = "127.0.0.1:5443"
	DefaultLocalSocket = "/var/run/tokenreg-server/tokenreg-server.sock"

	DefaultDataDir = "/var/lib/tokenreg-server/data"

	DefaultGlobalRoot         = "root"
	DefaultDefaultCluster     = "default"
	DefaultGlobalRateLimit    = 1000
	DefaultReindexConcurrency = 4

	DefaultGossipPort = 7946

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:                  DefaultHTTPAddr,
				AuthTrustedUserHeader: "X-Authenticated-User",
				GlobalRateLimit:       DefaultGlobalRateLimit,
				EnableAudit:           true,
				MetricsEnabled:        true,
			},
			Local: LocalConfig{
				Path: DefaultLocalSocket,
			},
		},
		Registry: RegistrySection{
			GlobalRoot:         DefaultGlobalRoot,
			DefaultCluster:     DefaultDefaultCluster,
			ReindexConcurrency: DefaultReindexConcurrency,
		},
		Storage: StorageSection{
			DataDir: DefaultDataDir,
		},
		Cluster: ClusterSection{
			GossipPort: DefaultGossipPort,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
