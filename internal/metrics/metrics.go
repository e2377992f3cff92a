// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for production observability of the engine:
// - Cache store efficiency (hits, misses, evictions, size)
// - Preload scheduler queue depth and in-flight load count
// - Resource loader attempt latency, retries, and recovery outcomes
// - Circuit breaker state for the load primitive
// - Persistent backend command forwarding

var (
	// Cache Store Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixelfetch_cache_hits_total",
			Help: "Total number of image cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixelfetch_cache_misses_total",
			Help: "Total number of image cache misses (absent or expired)",
		},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelfetch_cache_evictions_total",
			Help: "Total number of cache entries removed",
		},
		[]string{"reason"}, // "expired", "size", "invalidated", "cleared"
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixelfetch_cache_entries",
			Help: "Current number of cached image entries",
		},
	)

	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixelfetch_cache_size_bytes",
			Help: "Estimated total size of cached images in bytes",
		},
	)

	// Preload Scheduler Metrics
	PreloadQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixelfetch_preload_queue_depth",
			Help: "Current number of URLs waiting in the preload queue",
		},
	)

	PreloadInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixelfetch_preload_in_flight",
			Help: "Current number of in-flight preload loads",
		},
	)

	PreloadDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelfetch_preload_dispatched_total",
			Help: "Total number of preload dispatches by strategy",
		},
		[]string{"strategy"}, // "immediate", "hover", "viewport", "navigation"
	)

	PreloadSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelfetch_preload_skipped_total",
			Help: "Total number of preload URLs skipped during filtering",
		},
		[]string{"reason"}, // "empty", "cached", "in_flight"
	)

	// Resource Loader Metrics
	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixelfetch_load_duration_seconds",
			Help:    "Duration of image load attempts in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"}, // "success", "failure"
	)

	LoadRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixelfetch_load_retries_total",
			Help: "Total number of load retry attempts",
		},
	)

	LoadRecoveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelfetch_load_recoveries_total",
			Help: "Total number of recovery resolutions by strategy and outcome",
		},
		[]string{"strategy", "outcome"}, // strategy: "retry"/"fallback"/"placeholder"/"silent"; outcome: "resolved"/"exhausted"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pixelfetch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelfetch_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Persistent Backend Metrics
	BackendCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelfetch_backend_commands_total",
			Help: "Total number of commands forwarded to the persistent backend",
		},
		[]string{"command", "outcome"}, // command: "cache_image"/"invalidate_image"/"clear_cache"/"get_cache_size"
	)

	BackendQueueDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixelfetch_backend_queue_drops_total",
			Help: "Total number of backend commands dropped due to a full forwarding queue",
		},
	)

	// HTTP API Metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixelfetch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixelfetch_api_request_duration_seconds",
			Help:    "API request processing time",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixelfetch_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)
)

// RecordCacheHit records a successful cache lookup.
func RecordCacheHit() {
	CacheHits.Inc()
}

// RecordCacheMiss records a cache lookup that found no fresh entry.
func RecordCacheMiss() {
	CacheMisses.Inc()
}

// RecordEviction records a cache entry removal with the given reason.
func RecordEviction(reason string) {
	CacheEvictions.WithLabelValues(reason).Inc()
}

// UpdateCacheGauges updates the cache occupancy gauges.
func UpdateCacheGauges(entries int, sizeBytes int64) {
	CacheEntries.Set(float64(entries))
	CacheSizeBytes.Set(float64(sizeBytes))
}

// RecordLoad records a completed load attempt with its duration.
func RecordLoad(success bool, elapsed time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	LoadDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordRecovery records a recovery strategy resolution.
func RecordRecovery(strategy string, resolved bool) {
	outcome := "exhausted"
	if resolved {
		outcome = "resolved"
	}
	LoadRecoveries.WithLabelValues(strategy, outcome).Inc()
}

// RecordBackendCommand records a forwarded backend command outcome.
func RecordBackendCommand(command string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	BackendCommands.WithLabelValues(command, outcome).Inc()
}

// RecordAPIRequest records one served API request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequests.WithLabelValues(method, path, status).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the active request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
