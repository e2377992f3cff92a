// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/pixelfetch/pixelfetch/internal/engine"
	"github.com/pixelfetch/pixelfetch/internal/logging"
	"github.com/pixelfetch/pixelfetch/internal/preload"
	"github.com/pixelfetch/pixelfetch/internal/validation"
)

// maxRequestBody bounds request bodies accepted by the JSON decoder.
const maxRequestBody = 1 << 20

// Handler serves the HTTP API over a single engine instance.
type Handler struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// NewHandler creates an API handler backed by the given engine.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{
		engine: e,
		log:    logging.Component("api"),
	}
}

// decodeJSON decodes and validates a request body into dst. A false
// return means an error response was already written.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	rw := NewResponseWriter(w, r)

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		rw.BadRequest("invalid JSON body", err.Error())
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		rw.ValidationFailed("request validation failed", verr.Fields)
		return false
	}

	return true
}

// handleHealth reports liveness plus a few cheap engine gauges.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":      "ok",
		"queue_depth": h.engine.Scheduler.QueueDepth(),
		"in_flight":   h.engine.Scheduler.InFlight(),
	})
}

// handlePreload schedules a batch of URLs for warming.
func (h *Handler) handlePreload(w http.ResponseWriter, r *http.Request) {
	var req PreloadRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	opts := preload.Options{
		Strategy:      preload.ParseStrategy(req.Strategy),
		Priority:      preload.ParsePriority(req.Priority),
		MaxConcurrent: req.MaxConcurrent,
		Delay:         time.Duration(req.DelayMs) * time.Millisecond,
	}

	done := h.engine.Scheduler.Preload(r.Context(), req.URLs, opts)

	rw := NewResponseWriter(w, r)
	body := map[string]interface{}{
		"accepted": len(req.URLs),
		"strategy": opts.Strategy.String(),
		"priority": opts.Priority.String(),
	}

	if !req.Wait {
		rw.Accepted(body)
		return
	}

	select {
	case <-done:
		body["settled"] = true
		rw.Success(body)
	case <-r.Context().Done():
		rw.Error(http.StatusRequestTimeout, ErrCodeUnavailable,
			"client went away before the batch settled", nil)
	}
}

// handleCachePut records a URL as cached, optionally with TTL and size.
func (h *Handler) handleCachePut(w http.ResponseWriter, r *http.Request) {
	var req CacheRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	ttl := time.Duration(req.TTLMs) * time.Millisecond
	if ttl <= 0 {
		ttl = h.engine.Config().Cache.DefaultTTL
	}
	h.engine.Store.CacheSized(req.URL, ttl, req.SizeBytes)

	NewResponseWriter(w, r).Success(map[string]interface{}{
		"url":    req.URL,
		"cached": true,
	})
}

// handleCacheGet reports whether a single URL is cached.
func (h *Handler) handleCacheGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	url := r.URL.Query().Get("url")
	if url == "" {
		rw.BadRequest("missing required query parameter: url", nil)
		return
	}

	rw.Success(map[string]interface{}{
		"url":    url,
		"cached": h.engine.Store.IsCached(url),
	})
}

// handleCacheInvalidate drops a single cache entry.
func (h *Handler) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	h.engine.Store.Invalidate(req.URL)

	NewResponseWriter(w, r).Success(map[string]interface{}{
		"url":         req.URL,
		"invalidated": true,
	})
}

// handleCacheClear drops every cache entry.
func (h *Handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	h.engine.Store.Clear()
	NewResponseWriter(w, r).Success(map[string]interface{}{"cleared": true})
}

// handleCacheStats returns in-memory and persistent occupancy.
func (h *Handler) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"memory":  h.engine.Store.Stats(),
		"backend": h.engine.Store.BackendStats(r.Context()),
	})
}

// handleCacheURLs lists the unexpired cached URLs.
func (h *Handler) handleCacheURLs(w http.ResponseWriter, r *http.Request) {
	urls := h.engine.Store.CachedURLs()
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"count": len(urls),
		"urls":  urls,
	})
}

// handleCapabilities returns the current capability snapshot.
func (h *Handler) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.engine.Capability.Snapshot())
}

// handleNetworkReport applies client-reported connection hints.
func (h *Handler) handleNetworkReport(w http.ResponseWriter, r *http.Request) {
	var req NetworkReportRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if req.EffectiveType != "" {
		h.engine.Capability.Estimator().SetEffectiveType(req.EffectiveType)
	}
	if req.DataSaver != nil {
		h.engine.Capability.SetDataSaver(*req.DataSaver)
	}

	NewResponseWriter(w, r).Success(h.engine.Capability.Snapshot())
}

// handleAnalyticsMetrics returns the collected load metrics.
func (h *Handler) handleAnalyticsMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := h.engine.Analytics.Metrics()
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"count":   len(metrics),
		"metrics": metrics,
	})
}

// handleAnalyticsInteractions returns the collected interaction events.
func (h *Handler) handleAnalyticsInteractions(w http.ResponseWriter, r *http.Request) {
	interactions := h.engine.Analytics.Interactions()
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"count":        len(interactions),
		"interactions": interactions,
	})
}

// handleAnalyticsInteraction records one interaction event.
func (h *Handler) handleAnalyticsInteraction(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	h.engine.Analytics.TrackInteraction(req.Type, req.URL, req.Metadata)

	NewResponseWriter(w, r).Success(map[string]interface{}{"recorded": true})
}

// handleAnalyticsClear drops all collected analytics data.
func (h *Handler) handleAnalyticsClear(w http.ResponseWriter, r *http.Request) {
	h.engine.Analytics.ClearMetrics()
	NewResponseWriter(w, r).Success(map[string]interface{}{"cleared": true})
}

// errNoVisibility is returned when the engine runs with an external
// visibility signal and the API cannot forward intersection reports.
var errNoVisibility = errors.New("visibility signal not managed by this server")

// handleVisibility forwards a viewport intersection report to any
// pending visibility watch for the URL.
func (h *Handler) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req VisibilityRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	rw := NewResponseWriter(w, r)

	if h.engine.Visibility == nil {
		rw.Error(http.StatusConflict, ErrCodeBadRequest, errNoVisibility.Error(), nil)
		return
	}

	h.engine.Visibility.Notify(req.URL)

	rw.Success(map[string]interface{}{
		"url":      req.URL,
		"watching": h.engine.Visibility.Watching(),
	})
}
