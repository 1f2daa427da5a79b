// Package main provides the entry point for tokenreg-server.
//
// tokenreg-server is the core service process for the token registry: an
// owner-scoped, optimistic-concurrency key/value store for service tokens,
// replicated across a gossip cluster via best-effort peer-cache-invalidation
// broadcast.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fleetkit/tokenreg/internal/core/service"
	"github.com/fleetkit/tokenreg/internal/infra/confloader"
	"github.com/fleetkit/tokenreg/internal/infra/shutdown"
	"github.com/fleetkit/tokenreg/internal/kv"
	"github.com/fleetkit/tokenreg/internal/server/config"
	"github.com/fleetkit/tokenreg/internal/server/discovery"
	"github.com/fleetkit/tokenreg/internal/server/httpserver"
	"github.com/fleetkit/tokenreg/internal/server/localserver"
	"github.com/fleetkit/tokenreg/internal/storage/badgerkv"
	"github.com/fleetkit/tokenreg/internal/telemetry/logger"
	"github.com/fleetkit/tokenreg/internal/telemetry/metric"
	"github.com/fleetkit/tokenreg/pkg/crypto/adaptive"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("tokenreg-server %s (commit: %s, built: %s)\n", version, commit, buildTime)
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, slogLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting tokenreg-server",
		"version", version,
		"commit", commit,
		"config", *configFile)

	store, closeStore, err := initStorage(cfg, slogLogger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	disc, err := initDiscovery(cfg, slogLogger)
	if err != nil {
		return fmt.Errorf("init discovery: %w", err)
	}

	metrics := metric.NewRegistry()

	registry, reindexer := initRegistry(cfg, store, disc, metrics, slogLogger)

	metrics.RegisterCollector(metric.NewCollector(registry))

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Registry:              registry,
		Reindexer:             reindexer,
		Metrics:               metrics,
		Logger:                slogLogger,
		AuthTrustedUserHeader: cfg.Server.HTTP.AuthTrustedUserHeader,
		ReindexAllowList:      cfg.Server.HTTP.ReindexAllowList,
		RefreshAllowList:      cfg.Server.HTTP.RefreshAllowList,
		CORSAllowedOrigins:    cfg.Server.HTTP.CORSAllowedOrigins,
		GlobalRateLimit:       cfg.Server.HTTP.GlobalRateLimit,
		EnableAudit:           cfg.Server.HTTP.EnableAudit,
	})
	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router)

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	localHandler := localserver.NewHandler(registry, shutdownHandler.Trigger)
	var localSrv *localserver.Server
	if cfg.Server.Local.Path != "" {
		localSrv = localserver.New(cfg.Server.Local.Path, localHandler)
	}

	// Register shutdown hooks in reverse order of startup.
	if localSrv != nil {
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down local management server")
			return localSrv.Shutdown(ctx)
		})
	}

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		if disc == nil {
			return nil
		}
		log.Info("leaving cluster")
		return disc.Leave()
	})

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing storage")
		return closeStore()
	})

	if localSrv != nil {
		go func() {
			log.Info("local management server listening", "path", cfg.Server.Local.Path)
			if err := localSrv.ListenAndServe(); err != nil {
				log.Error("local management server error", "error", err)
			}
		}()
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr)

		var err error
		if cfg.Server.HTTP.TLSCertFile != "" && cfg.Server.HTTP.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithEnvPrefix("TOKENREG_")}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the structured logger, returning both the
// redacting Logger interface and a raw *slog.Logger bridged from it for
// collaborators (service.Registry, httpserver, discovery) that take one
// directly.
func initLogger(cfg *config.ServerConfig) (logger.Logger, *slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.SetDefault(log)

	return log, logger.Slog(log), nil
}

// storeWithKeys is what initStorage hands back: the narrow kv.Store
// adapter contract the mutation pipeline depends on, plus the concrete
// Keys enumeration service.KVTokenLister needs for re-index. badgerkv.Store
// and kv.MemoryStore both satisfy it.
type storeWithKeys interface {
	kv.Store
	service.KeyLister
}

// initStorage opens the badgerkv store backing the registry, wiring
// at-rest encryption via pkg/crypto/adaptive when a key is configured. It
// returns a close function rather than the concrete *badgerkv.Store, since
// run's cleanup only ever needs to close it, not re-open the interface.
func initStorage(cfg *config.ServerConfig, log *slog.Logger) (storeWithKeys, func() error, error) {
	opts := []badgerkv.Option{badgerkv.WithLogger(log)}

	if cfg.Security.EncryptionKey != "" {
		cipher, err := adaptive.New([]byte(cfg.Security.EncryptionKey))
		if err != nil {
			return nil, nil, fmt.Errorf("init cipher: %w", err)
		}
		opts = append(opts, badgerkv.WithCipher(cipher))
	}

	store, err := badgerkv.Open(cfg.Storage.DataDir, opts...)
	if err != nil {
		return nil, nil, err
	}

	return store, store.Close, nil
}

// initDiscovery starts gossip-based peer discovery. A node with no seeds
// configured still starts discovery, bootstrapping a single-node cluster it
// can be joined into later.
func initDiscovery(cfg *config.ServerConfig, log *slog.Logger) (*discovery.Discovery, error) {
	discCfg, err := config.ToDiscoveryConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	return discovery.New(discCfg)
}

// initRegistry assembles the mutation pipeline and its re-index
// collaborator.
func initRegistry(cfg *config.ServerConfig, store storeWithKeys, disc *discovery.Discovery, metrics *metric.Registry, log *slog.Logger) (*service.Registry, *service.Reindexer) {
	locks := service.NewLockManager()
	authz := service.NewRoleAuthorizer()
	cluster := config.ToClusterCalculator(cfg)

	peers := service.NewHTTPPeerBroadcaster(disc, "/tokens/refresh", log).
		RegisterMetrics(metrics.Prometheus())

	registry := service.NewRegistry(store, locks, authz, cluster, peers, nil, nil, service.RegistryConfig{
		Quota:      cfg.Registry.Quota,
		GlobalRoot: cfg.Registry.GlobalRoot,
	}, log)

	lister := service.NewKVTokenLister(store)
	reindexer := service.NewReindexer(registry, lister)

	return registry, reindexer
}
