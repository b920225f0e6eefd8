package config

// Config is the complete recognized configuration (spec.md §6 "Configuration
// (recognized options)"), loaded from a single YAML file plus environment
// variable expansion and overlaid on the built-in defaults in defaults.go.
type Config struct {
	Registry   RegistryConfig              `yaml:"registry"`
	A2AClient  A2AClientConfig             `yaml:"a2a_client"`
	Cache      CacheConfig                 `yaml:"cache"`
	Supervisor SupervisorConfig            `yaml:"supervisor"`
	Telemetry  TelemetryConfig             `yaml:"telemetry"`
	Slack      SlackConfig                 `yaml:"slack"`
	MCPServers map[string]*MCPServerConfig `yaml:"mcp_servers,omitempty"`
}

// MCPServerRegistry builds the pkg/mcp-facing registry view of Config's
// mcp_servers block. pkg/mcp depends on *MCPServerRegistry rather than on
// Config directly so it stays decoupled from the rest of this package.
func (c *Config) MCPServerRegistry() *MCPServerRegistry {
	return NewMCPServerRegistry(c.MCPServers)
}

// RegistryConfig configures the Registry Store/Service (C3/C4) and Health
// Monitor (C5).
type RegistryConfig struct {
	RedisURL                   string `yaml:"redis_url"`
	RedisTTLSeconds            int    `yaml:"redis_ttl_seconds"`
	DurableEndpoint            string `yaml:"durable_endpoint,omitempty"`
	DurableKey                 string `yaml:"durable_key,omitempty"`
	HealthCheckEnabled         bool   `yaml:"health_check_enabled"`
	HealthCheckIntervalSeconds int    `yaml:"health_check_interval_seconds"`
	StaleAgentThresholdMinutes int    `yaml:"stale_agent_threshold_minutes"`
	AuthEnabled                bool   `yaml:"auth_enabled"`
	JWTSecret                  string `yaml:"jwt_secret"`
	JWTAlgorithm               string `yaml:"jwt_algorithm"`
	JWTExpirationSeconds       int    `yaml:"jwt_expiration_seconds"`
}

// A2AClientConfig configures the A2A Client (C6), including its circuit
// breaker (C1).
type A2AClientConfig struct {
	TimeoutSeconds               int  `yaml:"timeout_seconds"`
	MaxRetries                   int  `yaml:"max_retries"`
	RetryBackoffSeconds          int  `yaml:"retry_backoff_seconds"`
	CircuitBreakerThreshold      int  `yaml:"circuit_breaker_threshold"`
	CircuitBreakerTimeoutSeconds int  `yaml:"circuit_breaker_timeout_seconds"`
	EnableTracing                bool `yaml:"enable_tracing"`
}

// CacheConfig configures the User Cache (C8).
type CacheConfig struct {
	CacheDir          string `yaml:"cache_dir"`
	TTLSeconds        int    `yaml:"ttl_seconds"`
	CleanupAgeSeconds int    `yaml:"cleanup_age_seconds"`
}

// SupervisorConfig configures the Supervisor Router (C10). AgentA2AURLs
// names, per agent, the A2A capability string its specialist registers
// under in the Registry — the Supervisor resolves a live endpoint through
// discovery (C6) rather than dialing a fixed address, so these are
// capability names, not literal URLs, despite the YAML key inherited from
// spec.md's naming.
type SupervisorConfig struct {
	LLMEndpoint       string            `yaml:"llm_endpoint"`
	LLMMiniDeployment string            `yaml:"llm_mini_deployment"`
	AgentA2AURLs      map[string]string `yaml:"agent_a2a_urls"`
	EnableA2APerAgent map[string]bool   `yaml:"enable_a2a_per_agent"`
}

// TelemetryConfig configures the Telemetry Sink (C12). Not itself named in
// spec.md §6's enumerated blocks, but required by every sink-producing
// component; defaults to a local directory alongside the cache.
type TelemetryConfig struct {
	Dir string `yaml:"dir"`
}

// SlackConfig configures escalation ticket notifications (pkg/slack,
// adapted from teacher system.go's identical shape).
type SlackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	TokenEnv string `yaml:"token_env"`
	Channel  string `yaml:"channel"`
}
