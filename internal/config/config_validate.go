// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validatePreload(); err != nil {
		return err
	}
	if err := c.validateLoader(); err != nil {
		return err
	}
	if err := c.validateAnalytics(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("CACHE_DEFAULT_TTL must be positive, got %v", c.Cache.DefaultTTL)
	}
	if c.Cache.MaxSizeBytes < 0 {
		return fmt.Errorf("CACHE_MAX_SIZE_BYTES must not be negative, got %d", c.Cache.MaxSizeBytes)
	}
	if c.Cache.JanitorInterval <= 0 {
		return fmt.Errorf("CACHE_JANITOR_INTERVAL must be positive, got %v", c.Cache.JanitorInterval)
	}
	return nil
}

func (c *Config) validatePreload() error {
	if c.Preload.MaxConcurrent < 1 {
		return fmt.Errorf("PRELOAD_MAX_CONCURRENT must be at least 1, got %d", c.Preload.MaxConcurrent)
	}
	if c.Preload.DefaultDelay < 0 {
		return fmt.Errorf("PRELOAD_DEFAULT_DELAY must not be negative, got %v", c.Preload.DefaultDelay)
	}
	if c.Preload.ViewportWatchTimeout <= 0 {
		return fmt.Errorf("PRELOAD_VIEWPORT_WATCH_TIMEOUT must be positive, got %v", c.Preload.ViewportWatchTimeout)
	}
	if c.Preload.HoverRatePerSecond < 0 {
		return fmt.Errorf("PRELOAD_HOVER_RATE must not be negative, got %v", c.Preload.HoverRatePerSecond)
	}
	return nil
}

func (c *Config) validateLoader() error {
	if c.Loader.MaxRetries < 1 {
		return fmt.Errorf("LOADER_MAX_RETRIES must be at least 1, got %d", c.Loader.MaxRetries)
	}
	if c.Loader.InitialDelay < 0 {
		return fmt.Errorf("LOADER_INITIAL_DELAY must not be negative, got %v", c.Loader.InitialDelay)
	}
	if c.Loader.BreakerEnabled {
		if c.Loader.BreakerFailureRate <= 0 || c.Loader.BreakerFailureRate > 1 {
			return fmt.Errorf("LOADER_BREAKER_FAILURE_RATE must be in (0, 1], got %v", c.Loader.BreakerFailureRate)
		}
		if c.Loader.BreakerTimeout <= 0 {
			return fmt.Errorf("LOADER_BREAKER_TIMEOUT must be positive, got %v", c.Loader.BreakerTimeout)
		}
	}
	return nil
}

func (c *Config) validateAnalytics() error {
	if c.Analytics.SampleRate < 0 || c.Analytics.SampleRate > 1 {
		return fmt.Errorf("ANALYTICS_SAMPLE_RATE must be in [0.0, 1.0], got %v", c.Analytics.SampleRate)
	}
	if c.Analytics.MaxMetrics < 1 {
		return fmt.Errorf("ANALYTICS_MAX_METRICS must be at least 1, got %d", c.Analytics.MaxMetrics)
	}
	return nil
}

func (c *Config) validateBackend() error {
	if !c.Backend.Enabled {
		return nil // Backend is optional - no validation needed when disabled
	}
	if c.Backend.Path == "" {
		return fmt.Errorf("BACKEND_PATH is required when BACKEND_ENABLED=true")
	}
	if c.Backend.QueueSize < 1 {
		return fmt.Errorf("BACKEND_QUEUE_SIZE must be at least 1, got %d", c.Backend.QueueSize)
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("BACKEND_REQUEST_TIMEOUT must be positive, got %v", c.Backend.RequestTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal; got %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
