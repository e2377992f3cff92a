// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package config

import "time"

// Config is the root configuration for the engine and the sidecar daemon.
//
// Precedence: environment variables > config file > built-in defaults.
// See LoadWithKoanf for the loading pipeline.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Cache      CacheConfig      `koanf:"cache"`
	Preload    PreloadConfig    `koanf:"preload"`
	Loader     LoaderConfig     `koanf:"loader"`
	Analytics  AnalyticsConfig  `koanf:"analytics"`
	Capability CapabilityConfig `koanf:"capability"`
	Backend    BackendConfig    `koanf:"backend"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig configures the HTTP sidecar surface.
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitReqs/RateLimitWindow bound requests per client IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// CacheConfig configures the in-memory cache store.
type CacheConfig struct {
	// DefaultTTL is applied when a cache call does not carry its own TTL.
	DefaultTTL time.Duration `koanf:"default_ttl"`

	// MaxSizeBytes bounds the estimated total size of cached entries.
	// 0 disables size-based eviction.
	MaxSizeBytes int64 `koanf:"max_size_bytes"`

	// JanitorInterval is how often expired entries are swept.
	JanitorInterval time.Duration `koanf:"janitor_interval"`
}

// PreloadConfig configures the preload scheduler.
type PreloadConfig struct {
	// MaxConcurrent is the default in-flight load ceiling per batch.
	MaxConcurrent int `koanf:"max_concurrent"`

	// DefaultDelay defers a batch before filtering begins.
	DefaultDelay time.Duration `koanf:"default_delay"`

	// ViewportWatchTimeout tears down a visibility watch that never fires.
	ViewportWatchTimeout time.Duration `koanf:"viewport_watch_timeout"`

	// HoverRatePerSecond bounds best-effort hover loads. 0 = unlimited.
	HoverRatePerSecond float64 `koanf:"hover_rate_per_second"`
}

// LoaderConfig configures the retrying resource loader.
type LoaderConfig struct {
	MaxRetries   int           `koanf:"max_retries"`
	InitialDelay time.Duration `koanf:"initial_delay"`

	// Circuit breaker settings for the load primitive.
	BreakerEnabled     bool          `koanf:"breaker_enabled"`
	BreakerMinRequests uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRate float64       `koanf:"breaker_failure_rate"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// AnalyticsConfig configures load metric collection.
type AnalyticsConfig struct {
	Enabled bool `koanf:"enabled"`

	// SampleRate in [0.0, 1.0] probabilistically skips tracking calls.
	SampleRate float64 `koanf:"sample_rate"`

	// MaxMetrics bounds retained metrics; oldest are dropped beyond it.
	MaxMetrics int `koanf:"max_metrics"`
}

// CapabilityConfig configures runtime capability detection.
type CapabilityConfig struct {
	// DataSaver floors the recommended quality when set.
	DataSaver bool `koanf:"data_saver"`

	// AssumedThroughputMbps seeds the network classifier before any
	// observed throughput samples exist. 0 leaves the class unknown.
	AssumedThroughputMbps float64 `koanf:"assumed_throughput_mbps"`
}

// BackendConfig configures the optional persistent cache backend.
type BackendConfig struct {
	Enabled bool `koanf:"enabled"`

	// Path is the BadgerDB directory.
	Path string `koanf:"path"`

	// QueueSize bounds the fire-and-forget command channel.
	QueueSize int `koanf:"queue_size"`

	// RequestTimeout bounds GET_CACHE_SIZE round trips.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// WarmStart rehydrates unexpired entries from the backend at startup.
	WarmStart bool `koanf:"warm_start"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3858,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Cache: CacheConfig{
			DefaultTTL:      5 * time.Minute,
			MaxSizeBytes:    0, // Size eviction off unless callers report sizes
			JanitorInterval: 5 * time.Minute,
		},
		Preload: PreloadConfig{
			MaxConcurrent:        3,
			DefaultDelay:         0,
			ViewportWatchTimeout: 5 * time.Second,
			HoverRatePerSecond:   10,
		},
		Loader: LoaderConfig{
			MaxRetries:         3,
			InitialDelay:       100 * time.Millisecond,
			BreakerEnabled:     true,
			BreakerMinRequests: 10,
			BreakerFailureRate: 0.6,
			BreakerTimeout:     2 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			Enabled:    true,
			SampleRate: 1.0,
			MaxMetrics: 10000,
		},
		Capability: CapabilityConfig{
			DataSaver:             false,
			AssumedThroughputMbps: 0, // Unknown until observed
		},
		Backend: BackendConfig{
			Enabled:        false,
			Path:           "/data/pixelfetch",
			QueueSize:      1024,
			RequestTimeout: 5 * time.Second,
			WarmStart:      true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
