// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixelfetch/pixelfetch/internal/analytics"
	"github.com/pixelfetch/pixelfetch/internal/backend"
	"github.com/pixelfetch/pixelfetch/internal/cache"
	"github.com/pixelfetch/pixelfetch/internal/capability"
	"github.com/pixelfetch/pixelfetch/internal/config"
	"github.com/pixelfetch/pixelfetch/internal/loader"
	"github.com/pixelfetch/pixelfetch/internal/logging"
	"github.com/pixelfetch/pixelfetch/internal/preload"
)

// Options overrides engine collaborators. Zero values use production
// defaults.
type Options struct {
	// Attempt replaces the HTTP fetch primitive. Tests inject fakes here.
	Attempt loader.AttemptFunc

	// Visibility replaces the viewport visibility signal. Nil installs a
	// ChannelSignal fed by the API layer.
	Visibility preload.VisibilitySignal

	// HTTPClient replaces the default fetch client.
	HTTPClient *http.Client

	// Probe replaces the format detection probe.
	Probe capability.ProbeFunc
}

// Engine owns one instance of every component: cache store, preload
// scheduler, resource loader, analytics collector and capability probe.
// Construct with New, tear down with Shutdown. There is no global
// engine state; tests construct isolated instances.
type Engine struct {
	Store      *cache.Store
	Scheduler  *preload.Scheduler
	Loader     *loader.Loader
	Analytics  *analytics.Collector
	Capability *capability.Probe

	// Visibility is non-nil when the engine installed its own channel
	// signal; external intersection reports are forwarded through it.
	Visibility *preload.ChannelSignal

	cfg     *config.Config
	backend backend.PersistentBackend
	log     zerolog.Logger
}

// New wires an engine from configuration. The persistent backend is
// opened and, when warm start is on, unexpired entries are rehydrated
// into the in-memory store before the engine is returned.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	e := &Engine{
		cfg: cfg,
		log: logging.Component("engine"),
	}

	var be backend.PersistentBackend
	if cfg.Backend.Enabled {
		b, err := backend.NewBadgerBackend(cfg.Backend.Path)
		if err != nil {
			return nil, fmt.Errorf("open persistent backend: %w", err)
		}
		be = b
		e.backend = b
	}

	e.Store = cache.New(cache.Options{
		DefaultTTL:     cfg.Cache.DefaultTTL,
		MaxSizeBytes:   cfg.Cache.MaxSizeBytes,
		Backend:        be,
		QueueSize:      cfg.Backend.QueueSize,
		RequestTimeout: cfg.Backend.RequestTimeout,
	})

	if be != nil && cfg.Backend.WarmStart {
		if r, ok := be.(backend.Rehydrater); ok {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.RequestTimeout)
			if err := e.Store.Rehydrate(ctx, r); err != nil {
				e.log.Warn().Err(err).Msg("warm start failed, continuing with empty cache")
			}
			cancel()
		}
	}

	if cfg.Cache.JanitorInterval > 0 {
		e.Store.StartJanitor(cfg.Cache.JanitorInterval)
	}

	e.Capability = capability.NewProbe(opts.Probe)
	e.Capability.SetDataSaver(cfg.Capability.DataSaver)
	if mbps := cfg.Capability.AssumedThroughputMbps; mbps > 0 {
		// Seed the classifier with one synthetic 1-second transfer.
		e.Capability.Estimator().RecordSample(int64(mbps*1e6/8), time.Second)
	}

	e.Analytics = analytics.NewCollector(analytics.Config{
		Enabled:    cfg.Analytics.Enabled,
		SampleRate: cfg.Analytics.SampleRate,
		MaxMetrics: cfg.Analytics.MaxMetrics,
	})

	var brk *loader.Breaker
	if cfg.Loader.BreakerEnabled {
		brk = loader.NewBreaker(loader.BreakerConfig{
			Name:        "image-loader",
			MinRequests: cfg.Loader.BreakerMinRequests,
			FailureRate: cfg.Loader.BreakerFailureRate,
			Timeout:     cfg.Loader.BreakerTimeout,
		})
	}

	attempt := opts.Attempt
	if attempt == nil {
		client := opts.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: cfg.Server.Timeout}
		}
		attempt = newHTTPAttempt(client, e.Capability.Estimator())
	}

	e.Loader = loader.New(attempt, loader.Config{
		MaxRetries:   cfg.Loader.MaxRetries,
		InitialDelay: cfg.Loader.InitialDelay,
		Breaker:      brk,
		Tracker:      e.Analytics,
	})

	sig := opts.Visibility
	if sig == nil {
		cs := preload.NewChannelSignal()
		e.Visibility = cs
		sig = cs
	}

	e.Scheduler = preload.NewScheduler(e.Store, e.Loader, sig, preload.Config{
		MaxConcurrent:        cfg.Preload.MaxConcurrent,
		ViewportWatchTimeout: cfg.Preload.ViewportWatchTimeout,
		HoverRatePerSecond:   cfg.Preload.HoverRatePerSecond,
	})

	e.log.Info().
		Bool("backend", be != nil).
		Dur("default_ttl", cfg.Cache.DefaultTTL).
		Int("max_concurrent", cfg.Preload.MaxConcurrent).
		Msg("engine ready")

	return e, nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Shutdown stops the scheduler, drains the backend forwarder and closes
// the persistent backend. Safe to call once.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.Scheduler.Shutdown()
	e.Store.Shutdown()

	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			return fmt.Errorf("close persistent backend: %w", err)
		}
	}

	e.log.Info().Msg("engine stopped")
	return nil
}
