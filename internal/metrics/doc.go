// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

/*
Package metrics provides Prometheus instrumentation for the engine.

All collectors are registered with the default registry via promauto at
package initialization and exposed by the daemon's /metrics endpoint.

# Collector Groups

  - Cache store: hits, misses, evictions by reason, entry count, size
  - Preload scheduler: queue depth, in-flight gauge, dispatch and skip counters
  - Resource loader: attempt latency histogram, retry counter, recovery outcomes
  - Circuit breaker: state gauge and transition counter
  - Persistent backend: forwarded command counter and queue drop counter

# Usage

Components call the Record* helpers rather than touching collectors
directly, keeping label vocabularies in one place:

	metrics.RecordCacheHit()
	metrics.RecordLoad(true, elapsed)
	metrics.RecordEviction("expired")
*/
package metrics
