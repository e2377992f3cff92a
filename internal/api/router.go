// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pixelfetch/pixelfetch/internal/config"
	"github.com/pixelfetch/pixelfetch/internal/engine"
	"github.com/pixelfetch/pixelfetch/internal/middleware"
)

// NewRouter builds the chi router with the full middleware stack and
// every API route mounted.
func NewRouter(e *engine.Engine, cfg *config.Config) http.Handler {
	h := NewHandler(e)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Timeout(cfg.Server.Timeout))

	if cfg.Server.RateLimitReqs > 0 {
		window := cfg.Server.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.LimitByIP(cfg.Server.RateLimitReqs, window))
	}

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/preload", h.handlePreload)

		r.Route("/cache", func(r chi.Router) {
			r.Get("/", h.handleCacheGet)
			r.Post("/", h.handleCachePut)
			r.Post("/invalidate", h.handleCacheInvalidate)
			r.Post("/clear", h.handleCacheClear)
			r.Get("/stats", h.handleCacheStats)
			r.Get("/urls", h.handleCacheURLs)
		})

		r.Route("/capabilities", func(r chi.Router) {
			r.Get("/", h.handleCapabilities)
			r.Post("/network", h.handleNetworkReport)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/metrics", h.handleAnalyticsMetrics)
			r.Get("/interactions", h.handleAnalyticsInteractions)
			r.Post("/interaction", h.handleAnalyticsInteraction)
			r.Post("/clear", h.handleAnalyticsClear)
		})

		r.Post("/visibility", h.handleVisibility)
	})

	return r
}
