package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// configFileName is the single recognized YAML file, grounded on teacher
// loader.go's "tarsy.yaml" convention, renamed for this module.
const configFileName = "agent-fabric.yaml"

// Initialize loads, validates, and returns ready-to-use configuration: it
// reads configFileName from configDir (if present), expands environment
// variables, merges the result onto the built-in defaults, and validates.
// A missing config file is not an error — the built-in defaults alone are a
// valid configuration for local development.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("component", "config", "config_dir", configDir)

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	log.InfoContext(ctx, "configuration initialized",
		"redis_url_set", cfg.Registry.RedisURL != "",
		"cache_dir", cfg.Cache.CacheDir,
		"telemetry_dir", cfg.Telemetry.Dir)
	return cfg, nil
}

func load(configDir string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(configDir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, newLoadError(path, err)
	}

	data = ExpandEnv(data)

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, newLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	if err := mergo.Merge(cfg, overlay, mergo.WithOverride); err != nil {
		return nil, newLoadError(path, err)
	}
	return cfg, nil
}
