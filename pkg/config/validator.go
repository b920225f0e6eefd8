package config

import (
	"errors"
	"fmt"
)

// Validate performs the cross-field checks spec.md §6 implies but the YAML
// schema alone cannot enforce (e.g. a secret required only when auth is on).
// It collects every failure rather than stopping at the first, so a single
// run reports everything wrong with the configuration.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Registry.AuthEnabled && cfg.Registry.JWTSecret == "" {
		errs = append(errs, newValidationError("registry", "jwt_secret", fmt.Errorf("%w: required when auth_enabled", ErrMissingRequiredField)))
	}
	if cfg.Registry.RedisTTLSeconds <= 0 {
		errs = append(errs, newValidationError("registry", "redis_ttl_seconds", errors.New("must be positive")))
	}

	if cfg.A2AClient.TimeoutSeconds <= 0 {
		errs = append(errs, newValidationError("a2a_client", "timeout_seconds", errors.New("must be positive")))
	}
	if cfg.A2AClient.CircuitBreakerThreshold <= 0 {
		errs = append(errs, newValidationError("a2a_client", "circuit_breaker_threshold", errors.New("must be positive")))
	}

	if cfg.Cache.CacheDir == "" {
		errs = append(errs, newValidationError("cache", "cache_dir", ErrMissingRequiredField))
	}

	for _, agent := range []string{"account", "transaction", "payment", "prodinfo", "ai_coach", "escalation"} {
		if _, ok := cfg.Supervisor.AgentA2AURLs[agent]; !ok {
			errs = append(errs, newValidationError("supervisor", "agent_a2a_urls."+agent, ErrMissingRequiredField))
		}
	}

	if cfg.Slack.Enabled && cfg.Slack.TokenEnv == "" {
		errs = append(errs, newValidationError("slack", "token_env", fmt.Errorf("%w: required when enabled", ErrMissingRequiredField)))
	}

	return errors.Join(errs...)
}
