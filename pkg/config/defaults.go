package config

// DefaultConfig returns the built-in defaults named in spec.md §6 before any
// user YAML or environment override is applied.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			RedisTTLSeconds:            300,
			HealthCheckEnabled:         true,
			HealthCheckIntervalSeconds: 30,
			StaleAgentThresholdMinutes: 5,
			AuthEnabled:                true,
			JWTAlgorithm:               "HS256",
			JWTExpirationSeconds:       3600,
		},
		A2AClient: A2AClientConfig{
			TimeoutSeconds:               30,
			MaxRetries:                   3,
			RetryBackoffSeconds:          2,
			CircuitBreakerThreshold:      5,
			CircuitBreakerTimeoutSeconds: 60,
			EnableTracing:                true,
		},
		Cache: CacheConfig{
			TTLSeconds:        300,
			CleanupAgeSeconds: 3600,
		},
		Supervisor: SupervisorConfig{
			AgentA2AURLs: map[string]string{
				"account":     "account",
				"transaction": "transaction",
				"payment":     "payment",
				"prodinfo":    "prodinfo",
				"ai_coach":    "ai_coach",
				"escalation":  "escalation",
			},
			EnableA2APerAgent: map[string]bool{
				"account":     true,
				"transaction": true,
				"payment":     true,
				"prodinfo":    true,
				"ai_coach":    true,
				"escalation":  true,
			},
		},
		Telemetry: TelemetryConfig{
			Dir: "./data/telemetry",
		},
		Slack: SlackConfig{
			Enabled:  false,
			TokenEnv: "SLACK_BOT_TOKEN",
		},
	}
}
