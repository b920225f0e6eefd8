// Command agent runs one specialist agent behind the A2A protocol: it
// registers with the Registry, serves /a2a/invoke, and heartbeats until
// terminated. Which specialist it is (name, type, capability, prompt) is
// selected entirely through environment variables, since the six
// specialists (account, transaction, payment, prodinfo, money-coach,
// escalation) share identical plumbing and differ only in configuration --
// matching how agents/*-a2a/agent_handler.py is one shape instantiated six
// times in original_source.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bankx/agent-fabric/pkg/a2a"
	"github.com/bankx/agent-fabric/pkg/agent"
	"github.com/bankx/agent-fabric/pkg/audit"
	"github.com/bankx/agent-fabric/pkg/config"
	"github.com/bankx/agent-fabric/pkg/llm"
	"github.com/bankx/agent-fabric/pkg/llmprovider"
	"github.com/bankx/agent-fabric/pkg/masking"
	"github.com/bankx/agent-fabric/pkg/mcp"
	"github.com/bankx/agent-fabric/pkg/slack"
	"github.com/bankx/agent-fabric/pkg/telemetry"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// splitCSV splits a comma-separated env var into trimmed, non-empty entries.
func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	if err := godotenv.Load(filepath.Join(*configDir, ".env")); err != nil {
		slog.Warn("no .env file loaded", "config_dir", *configDir, "error", err)
	}

	agentName := getEnv("AGENT_NAME", "Account Agent")
	agentType := getEnv("AGENT_TYPE", "domain")
	capability := getEnv("AGENT_CAPABILITY", "account")
	triageRule := getEnv("AGENT_TRIAGE_RULE", "")
	instructionsPath := getEnv("AGENT_INSTRUCTIONS_FILE", "")
	httpAddr := getEnv("AGENT_HTTP_ADDR", ":8090")
	publicHTTPURL := getEnv("AGENT_PUBLIC_URL", "http://localhost"+httpAddr)
	registryURL := getEnv("REGISTRY_URL", "http://localhost:8080")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	sink, err := telemetry.NewFileSink(cfg.Telemetry.Dir)
	if err != nil {
		slog.Error("failed to initialize telemetry sink", "error", err)
		os.Exit(1)
	}

	llmClient, err := llm.NewClient(cfg.Supervisor.LLMEndpoint)
	if err != nil {
		slog.Error("failed to connect to LLM service", "error", err)
		os.Exit(1)
	}

	instructions := ""
	if instructionsPath != "" {
		data, err := os.ReadFile(instructionsPath)
		if err != nil {
			slog.Error("failed to read agent instructions", "path", instructionsPath, "error", err)
			os.Exit(1)
		}
		instructions = string(data)
	}

	// AGENT_MCP_SERVERS names the MCP servers this specialist may call tools
	// on (comma-separated registry IDs from deploy/config's mcp_servers
	// block). Left unset, the specialist falls back to plain completions --
	// the same behavior as before this was wired in.
	var toolExecutor agent.ToolExecutor
	if mcpServerIDs := splitCSV(getEnv("AGENT_MCP_SERVERS", "")); len(mcpServerIDs) > 0 {
		registry := cfg.MCPServerRegistry()
		maskingSvc := masking.NewMaskingService(registry, masking.AlertMaskingConfig{})

		auditSink, err := audit.NewFileSink(filepath.Join(cfg.Telemetry.Dir, "audit"))
		if err != nil {
			slog.Error("failed to initialize audit sink", "error", err)
			os.Exit(1)
		}
		auditCfg := audit.Config{UserID: agentName}
		if capability == "payment" {
			auditCfg.PaymentServerIDs = mcpServerIDs
		}

		factory := mcp.NewClientFactory(registry, maskingSvc)
		executor, _, err := factory.CreateAuditedToolExecutor(ctx, mcpServerIDs, nil, auditSink, auditCfg)
		if err != nil {
			slog.Error("failed to initialize MCP tool executor", "error", err, "servers", mcpServerIDs)
			os.Exit(1)
		}
		toolExecutor = executor
	}

	defaultLogic := agent.DefaultBusinessLogic{
		Provider:     llmprovider.NewGRPCProvider(llmClient),
		Instructions: instructions,
		Executor:     toolExecutor,
	}

	var logic agent.BusinessLogic = &defaultLogic
	if capability == "escalation" && cfg.Slack.Enabled {
		slackSvc := slack.NewService(slack.ServiceConfig{
			Token:        os.Getenv(cfg.Slack.TokenEnv),
			Channel:      cfg.Slack.Channel,
			DashboardURL: getEnv("OPS_DASHBOARD_URL", ""),
		})
		logic = &agent.EscalationBusinessLogic{DefaultBusinessLogic: defaultLogic, Notifier: slackSvc}
	}

	host := &agent.Host{
		AgentName:  agentName,
		TriageRule: triageRule,
		Logic:      logic,
		Telemetry:  sink,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/a2a/invoke", a2a.ServeHTTP(host.Handler(), slog.Default().With("component", "agent_host")))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{Addr: httpAddr, Handler: mux}

	registryClient := agent.NewRegistryClient(registryURL)
	agentID, err := registryClient.Register(ctx, agent.RegistrationInput{
		AgentName:    agentName,
		AgentType:    agentType,
		Version:      "1.0.0",
		Capabilities: []string{capability},
		Endpoints: agent.RegistrationEndpoints{
			HTTP:   publicHTTPURL,
			Health: publicHTTPURL + "/health",
			A2A:    publicHTTPURL + "/a2a/invoke",
		},
	})
	if err != nil {
		slog.Error("failed to register with registry", "error", err)
		os.Exit(1)
	}
	slog.Info("registered with registry", "agent_id", agentID, "capability", capability)

	heartbeatInterval := time.Duration(cfg.Registry.HealthCheckIntervalSeconds) * time.Second
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}
	go registryClient.RunHeartbeatLoop(ctx, heartbeatInterval)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		if toolExecutor != nil {
			_ = toolExecutor.Close()
		}
	}()

	slog.Info("specialist agent listening", "agent", agentName, "addr", httpAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("agent server stopped with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("agent shut down cleanly")
}
