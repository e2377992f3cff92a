// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

// Package main is the entry point for the Pixelfetch server.
//
// Pixelfetch is an image resource cache and preload engine for
// storefront clients. It tracks which image URLs are warm, schedules
// preloads with priority and concurrency control, retries failed loads
// with exponential backoff, probes format support, classifies network
// throughput and collects load analytics.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered load (defaults, config.yaml,
//     PIXELFETCH_ environment variables)
//  2. Logging: zerolog, JSON or console format
//  3. Engine: cache store, optional Badger persistent backend with
//     warm start, preload scheduler, loader, capability probe,
//     analytics collector
//  4. Supervisor tree: cache sweeper and HTTP listener under suture
//     supervision
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listener stops
// accepting connections, in-flight requests drain within the shutdown
// timeout, the scheduler and store flush, and the backend closes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixelfetch/pixelfetch/internal/api"
	"github.com/pixelfetch/pixelfetch/internal/config"
	"github.com/pixelfetch/pixelfetch/internal/engine"
	"github.com/pixelfetch/pixelfetch/internal/logging"
	"github.com/pixelfetch/pixelfetch/internal/supervisor"
	"github.com/pixelfetch/pixelfetch/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Bool("backend_enabled", cfg.Backend.Enabled).
		Str("backend_path", cfg.Backend.Path).
		Int("max_concurrent", cfg.Preload.MaxConcurrent).
		Msg("configuration loaded")

	// The sweeper runs as a supervised service in server mode; keep the
	// store from starting its own janitor goroutine.
	sweepInterval := cfg.Cache.JanitorInterval
	cfg.Cache.JanitorInterval = 0

	eng, err := engine.New(cfg, engine.Options{})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize engine")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// sutureslog speaks slog; bridge it back into zerolog.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	if sweepInterval > 0 {
		tree.AddCacheService(services.NewSweeperService(eng.Store, sweepInterval))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(eng, cfg),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("http server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("engine shutdown error")
	}

	logging.Info().Msg("stopped gracefully")
}
