// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

// Package api provides the HTTP surface over the engine.
//
// All endpoints speak a standardized JSON envelope (APIResponse) with a
// request ID threaded through for tracing. Request bodies are validated
// with struct tags before any handler logic runs; unknown JSON fields
// are rejected.
//
// Routes:
//
//	GET  /health                        liveness plus scheduler gauges
//	GET  /metrics                       Prometheus exposition
//	POST /api/v1/preload                schedule a preload batch
//	GET  /api/v1/cache                  membership check (?url=)
//	POST /api/v1/cache                  insert or refresh an entry
//	POST /api/v1/cache/invalidate       drop one entry
//	POST /api/v1/cache/clear            drop everything
//	GET  /api/v1/cache/stats            memory and backend occupancy
//	GET  /api/v1/cache/urls             list cached URLs
//	GET  /api/v1/capabilities           capability snapshot
//	POST /api/v1/capabilities/network   client connection hints
//	GET  /api/v1/analytics/metrics      collected load metrics
//	GET  /api/v1/analytics/interactions collected interaction events
//	POST /api/v1/analytics/interaction  record one interaction
//	POST /api/v1/analytics/clear        drop analytics data
//	POST /api/v1/visibility             viewport intersection report
package api
