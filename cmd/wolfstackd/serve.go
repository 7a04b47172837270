package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wolfstacksystems/wolfstack/pkg/api"
	"github.com/wolfstacksystems/wolfstack/pkg/client"
	"github.com/wolfstacksystems/wolfstack/pkg/cluster"
	"github.com/wolfstacksystems/wolfstack/pkg/config"
	"github.com/wolfstacksystems/wolfstack/pkg/lb"
	"github.com/wolfstacksystems/wolfstack/pkg/log"
	"github.com/wolfstacksystems/wolfstack/pkg/reconciler"
	"github.com/wolfstacksystems/wolfstack/pkg/runtime"
	"github.com/wolfstacksystems/wolfstack/pkg/security"
	"github.com/wolfstacksystems/wolfstack/pkg/storage"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
	"github.com/wolfstacksystems/wolfstack/pkg/wolfrun"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wolfstackd agent: poller, reconciler, and HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("node-id", "", "Override this node's id (defaults to hostname)")
	serveCmd.Flags().String("cluster-name", "", "Override the cluster name this node belongs to")
	serveCmd.Flags().String("data-dir", "", "Override the data directory")
	serveCmd.Flags().String("bind-addr", "", "Override the HTTP bind address")
	serveCmd.Flags().Int("bind-port", 0, "Override the HTTP bind port")
	serveCmd.Flags().StringSlice("peer", nil, "Seed peer in id=address:port form; may be repeated")
}

func loadConfig(cmd *cobra.Command) config.Config {
	cfg := config.Default()
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath, _ = cmd.Root().PersistentFlags().GetString("config")
	}
	if err := config.LoadFile(&cfg, configPath); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to load config file, continuing with defaults")
	}
	config.LoadEnv(&cfg)

	if v, _ := cmd.Flags().GetString("node-id"); v != "" {
		cfg.NodeID = v
	}
	if v, _ := cmd.Flags().GetString("cluster-name"); v != "" {
		cfg.ClusterName = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("bind-addr"); v != "" {
		cfg.BindAddr = v
	}
	if v, _ := cmd.Flags().GetInt("bind-port"); v != 0 {
		cfg.BindPort = v
	}
	return cfg
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	logger := log.WithComponent("wolfstackd")
	logger.Info().Str("node_id", cfg.NodeID).Str("cluster", cfg.ClusterName).Msg("starting")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	secret, err := security.LoadOrGenerateSecret(cfg.SecretPath)
	if err != nil {
		return fmt.Errorf("load cluster secret: %w", err)
	}
	sessions := security.NewSessionManager()

	cache, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer cache.Close()

	registry := cluster.NewRegistry()
	if seeded, err := cache.LoadNodeSnapshot(); err == nil {
		for _, n := range seeded {
			registry.AddManual(n)
		}
		logger.Info().Int("count", len(seeded)).Msg("seeded registry from cache")
	}

	hasDocker, hasLxc := runtime.DetectCapabilities()
	registry.UpdateSelf(types.Node{
		ID:          cfg.NodeID,
		Hostname:    cfg.Hostname,
		Address:     cfg.BindAddr,
		Port:        cfg.BindPort,
		LastSeen:    time.Now().Unix(),
		HasDocker:   hasDocker,
		HasLxc:      hasLxc,
		NodeType:    types.NodeTypeWolfStack,
		ClusterName: cfg.ClusterName,
		IsSelf:      true,
	})

	peers, _ := cmd.Flags().GetStringSlice("peer")
	for _, p := range peers {
		if n, ok := parsePeerFlag(p); ok {
			registry.AddManual(n)
		}
	}

	store, err := wolfrun.NewStore(filepath.Join(cfg.DataDir, "wolfrun", "services.json"))
	if err != nil {
		return fmt.Errorf("open service registry: %w", err)
	}

	httpClient := client.New(secret.String())
	poller := cluster.NewPoller(registry, httpClient)
	poller.Period = cfg.PollPeriod

	var lbBuilder *lb.Builder
	if b, err := lb.NewBuilder(cfg.Overlay); err != nil {
		logger.Warn().Err(err).Msg("load balancer rule builder unavailable, LB rebuild is a no-op")
	} else {
		lbBuilder = b
	}

	rec := reconciler.New(registry, store, httpClient, lbBuilder)
	rec.Period = cfg.TickPeriod
	rec.AttachCache(cache)

	server := api.NewServer(registry, store, secret, sessions, cfg.NodeID, cfg.ClusterName)

	poller.Start()
	rec.Start()
	defer poller.Stop()
	defer rec.Stop()

	stopSnapshot := startSnapshotLoop(registry, cache)
	defer close(stopSnapshot)

	addr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.BindPort)
	httpServer := &http.Server{Addr: addr, Handler: server.Router()}

	go func() {
		logger.Info().Str("addr", addr).Msg("http api listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// startSnapshotLoop periodically persists the cluster registry to the cache
// so a future restart has a warm peer list before its first poll completes.
func startSnapshotLoop(registry *cluster.Registry, cache *storage.Cache) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := cache.SaveNodeSnapshot(registry.ListNodes()); err != nil {
					log.WithComponent("wolfstackd").Warn().Err(err).Msg("snapshot registry to cache")
				}
			case <-stop:
				return
			}
		}
	}()
	return stop
}

func parsePeerFlag(spec string) (types.Node, bool) {
	idAddr := splitOnce(spec, '=')
	if idAddr[0] == "" || idAddr[1] == "" {
		return types.Node{}, false
	}
	hostPort := splitOnce(idAddr[1], ':')
	if hostPort[0] == "" || hostPort[1] == "" {
		return types.Node{}, false
	}
	port := 9090
	fmt.Sscanf(hostPort[1], "%d", &port)
	return types.Node{ID: idAddr[0], Address: hostPort[0], Port: port}, true
}

func splitOnce(s string, sep byte) [2]string {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return [2]string{s[:i], s[i+1:]}
		}
	}
	return [2]string{s, ""}
}
