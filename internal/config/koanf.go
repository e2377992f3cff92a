// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pixelfetch/config.yaml",
	"/etc/pixelfetch/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "PIXELFETCH_CONFIG_PATH"

// envPrefix selects which environment variables feed the config layer.
const envPrefix = "PIXELFETCH_"

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence is ENV > File > Defaults, and the result is validated before
// it is returned.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// PIXELFETCH_CACHE_DEFAULT_TTL -> cache.default_ttl
	// PIXELFETCH_PRELOAD_MAX_CONCURRENT -> preload.max_concurrent
	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc transforms prefixed environment variable names to
// koanf config paths.
//
// Examples:
//   - PIXELFETCH_HTTP_PORT -> server.port
//   - PIXELFETCH_CACHE_DEFAULT_TTL -> cache.default_ttl
//   - PIXELFETCH_PRELOAD_MAX_CONCURRENT -> preload.max_concurrent
//   - PIXELFETCH_BACKEND_PATH -> backend.path
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	envMappings := map[string]string{
		// Server mappings
		"http_port":         "server.port",
		"http_host":         "server.host",
		"http_timeout":      "server.timeout",
		"rate_limit_reqs":   "server.rate_limit_reqs",
		"rate_limit_window": "server.rate_limit_window",

		// Cache mappings
		"cache_default_ttl":      "cache.default_ttl",
		"cache_max_size_bytes":   "cache.max_size_bytes",
		"cache_janitor_interval": "cache.janitor_interval",

		// Preload mappings
		"preload_max_concurrent":         "preload.max_concurrent",
		"preload_default_delay":          "preload.default_delay",
		"preload_viewport_watch_timeout": "preload.viewport_watch_timeout",
		"preload_hover_rate":             "preload.hover_rate_per_second",

		// Loader mappings
		"loader_max_retries":          "loader.max_retries",
		"loader_initial_delay":        "loader.initial_delay",
		"loader_breaker_enabled":      "loader.breaker_enabled",
		"loader_breaker_min_requests": "loader.breaker_min_requests",
		"loader_breaker_failure_rate": "loader.breaker_failure_rate",
		"loader_breaker_timeout":      "loader.breaker_timeout",

		// Analytics mappings
		"analytics_enabled":     "analytics.enabled",
		"analytics_sample_rate": "analytics.sample_rate",
		"analytics_max_metrics": "analytics.max_metrics",

		// Capability mappings
		"capability_data_saver":      "capability.data_saver",
		"capability_throughput_mbps": "capability.assumed_throughput_mbps",

		// Backend mappings
		"backend_enabled":         "backend.enabled",
		"backend_path":            "backend.path",
		"backend_queue_size":      "backend.queue_size",
		"backend_request_timeout": "backend.request_timeout",
		"backend_warm_start":      "backend.warm_start",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}
