// Command supervisor runs the Supervisor Router (C10) behind the HTTP+SSE
// /chat surface: it resolves specialists through the Registry's HTTP
// discovery endpoint, classifies and caches queries, dispatches turns over
// A2A, and fans telemetry out to both durable storage and the live ops
// dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/bankx/agent-fabric/pkg/a2a"
	"github.com/bankx/agent-fabric/pkg/cache"
	"github.com/bankx/agent-fabric/pkg/classifier"
	"github.com/bankx/agent-fabric/pkg/cleanup"
	"github.com/bankx/agent-fabric/pkg/config"
	"github.com/bankx/agent-fabric/pkg/conversation"
	"github.com/bankx/agent-fabric/pkg/database"
	"github.com/bankx/agent-fabric/pkg/llm"
	"github.com/bankx/agent-fabric/pkg/llmprovider"
	"github.com/bankx/agent-fabric/pkg/opsstream"
	"github.com/bankx/agent-fabric/pkg/supervisor"
	"github.com/bankx/agent-fabric/pkg/supervisorapi"
	"github.com/bankx/agent-fabric/pkg/telemetry"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	httpAddr := flag.String("addr", getEnv("SUPERVISOR_HTTP_ADDR", ":8000"), "Supervisor HTTP listen address")
	opsAddr := flag.String("ops-addr", getEnv("SUPERVISOR_OPS_ADDR", ":8001"), "Ops dashboard WebSocket listen address")
	flag.Parse()

	if err := godotenv.Load(filepath.Join(*configDir, ".env")); err != nil {
		slog.Warn("no .env file loaded", "config_dir", *configDir, "error", err)
	}

	registryURL := getEnv("REGISTRY_URL", "http://localhost:8080")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	fileSink, err := telemetry.NewFileSink(cfg.Telemetry.Dir)
	if err != nil {
		slog.Error("failed to initialize telemetry sink", "error", err)
		os.Exit(1)
	}
	memSink := telemetry.NewMemorySink()
	sink := telemetry.NewMultiSink(fileSink, memSink)

	cacheManager, err := cache.NewManager(cfg.Cache.CacheDir)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	cleanupSvc := cleanup.NewService(cacheManager, time.Duration(cfg.Cache.CleanupAgeSeconds)*time.Second)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	llmClient, err := llm.NewClient(cfg.Supervisor.LLMEndpoint)
	if err != nil {
		slog.Error("failed to connect to LLM service", "error", err)
		os.Exit(1)
	}
	provider := llmprovider.NewGRPCProvider(llmClient)

	discoverer := supervisorapi.NewRegistryDiscoverer(registryURL)
	a2aClient := a2a.NewClient(
		a2a.AgentIdentifier{AgentID: "supervisor", Name: "Supervisor"},
		discoverer,
		a2a.ClientConfig{
			TimeoutSeconds:      cfg.A2AClient.TimeoutSeconds,
			MaxRetries:          cfg.A2AClient.MaxRetries,
			RetryBackoffSeconds: cfg.A2AClient.RetryBackoffSeconds,
			CircuitBreakerConfig: a2a.BreakerConfig{
				FailureThreshold: cfg.A2AClient.CircuitBreakerThreshold,
				TimeoutSeconds:   cfg.A2AClient.CircuitBreakerTimeoutSeconds,
			},
			EnableTracing: cfg.A2AClient.EnableTracing,
		},
		nil,
	)

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load database configuration", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		slog.Error("failed to connect to conversation log store", "error", err)
		os.Exit(1)
	}
	turnLogger := conversation.NewPostgresTurnLogger(dbClient.DB())
	conversations := conversation.NewManager(turnLogger)

	supervisorCfg := supervisor.DefaultConfig()
	supervisorCfg.LLMEndpoint = cfg.Supervisor.LLMEndpoint
	supervisorCfg.LLMMiniDeployment = cfg.Supervisor.LLMMiniDeployment
	for agent, enabled := range cfg.Supervisor.EnableA2APerAgent {
		supervisorCfg.EnabledPerAgent[classifier.Agent(agent)] = enabled
	}

	router := supervisor.NewRouter(
		a2aClient,
		cacheManager,
		classifier.NewCacheClassifier(provider),
		classifier.NewRoutingClassifier(provider),
		provider,
		conversations,
		supervisorCfg,
		sink,
	)

	server := supervisorapi.NewServer(router)

	hub := opsstream.NewHub(10 * time.Second)
	go hub.Run(ctx, memSink)
	opsServer := opsstream.NewDashboardServer(hub)

	go func() {
		slog.Info("ops dashboard listening", "addr", *opsAddr)
		if err := opsServer.Start(ctx, *opsAddr); err != nil {
			slog.Error("ops dashboard server stopped with error", "error", err)
		}
	}()

	slog.Info("supervisor listening", "addr", *httpAddr)
	if err := server.Start(ctx, *httpAddr); err != nil {
		slog.Error("supervisor server stopped with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("supervisor shut down cleanly")
}
