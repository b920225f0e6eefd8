// Command registry runs the Agent Registry: the hot (Redis) plus durable
// (Postgres) store, the discovery/register/heartbeat HTTP surface
// (pkg/registryapi), and the background Health Monitor (C5) that evicts
// stale agents and transitions status on probe failure.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bankx/agent-fabric/pkg/config"
	"github.com/bankx/agent-fabric/pkg/database"
	"github.com/bankx/agent-fabric/pkg/registry"
	"github.com/bankx/agent-fabric/pkg/registryapi"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	httpAddr := flag.String("addr", getEnv("REGISTRY_HTTP_ADDR", ":8080"), "Registry HTTP listen address")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Registry.RedisURL)
	if err != nil {
		slog.Error("invalid registry.redis_url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	hotStore := registry.NewRedisHotStore(redisClient, time.Duration(cfg.Registry.RedisTTLSeconds)*time.Second)

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load database configuration", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		slog.Error("failed to connect to durable store", "error", err)
		os.Exit(1)
	}
	durableStore := registry.NewPostgresDurableStore(dbClient.DB())

	svc, err := registry.NewService(hotStore, durableStore)
	if err != nil {
		slog.Error("failed to construct registry service", "error", err)
		os.Exit(1)
	}

	var auth *registryapi.Authenticator
	if cfg.Registry.AuthEnabled {
		auth = registryapi.NewAuthenticator(cfg.Registry.JWTSecret, cfg.Registry.JWTAlgorithm, cfg.Registry.JWTExpirationSeconds)
	}
	server := registryapi.NewServer(svc, auth)

	if cfg.Registry.HealthCheckEnabled {
		monitor := registry.NewHealthMonitor(svc, registry.HealthMonitorConfig{
			Enabled:                   cfg.Registry.HealthCheckEnabled,
			CheckIntervalSeconds:      cfg.Registry.HealthCheckIntervalSeconds,
			ProbeTimeoutSeconds:       5,
			StaleAgentThresholdMinute: cfg.Registry.StaleAgentThresholdMinutes,
		})
		monitor.Start(ctx)
		defer monitor.Stop()
	}

	slog.Info("registry listening", "addr", *httpAddr)
	if err := server.Start(ctx, *httpAddr); err != nil {
		slog.Error("registry server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("registry shut down cleanly")
}
