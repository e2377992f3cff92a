// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package loader

import (
	"time"

	"context"

	"github.com/rs/zerolog"

	"github.com/pixelfetch/pixelfetch/internal/logging"
	"github.com/pixelfetch/pixelfetch/internal/metrics"
)

// AttemptFunc performs a single fetch-and-decode attempt for a URL.
// It is the only network-facing primitive the loader knows about; the
// transport itself is an external collaborator.
type AttemptFunc func(ctx context.Context, url string) error

// Strategy selects how a failed load is recovered.
type Strategy int

const (
	// StrategyRetry applies exponential backoff, then surfaces a final error.
	StrategyRetry Strategy = iota

	// StrategyFallback advances through an ordered fallback URL list,
	// resetting the retry budget per URL, then surfaces a final error.
	StrategyFallback

	// StrategyPlaceholder resolves to "no URL" on first failure and
	// surfaces an error; the caller renders a placeholder.
	StrategyPlaceholder

	// StrategySilent resolves to "no URL" on first failure without any
	// error callback. The failure is still recorded in metrics.
	StrategySilent
)

func (s Strategy) String() string {
	switch s {
	case StrategyRetry:
		return "retry"
	case StrategyFallback:
		return "fallback"
	case StrategyPlaceholder:
		return "placeholder"
	case StrategySilent:
		return "silent"
	default:
		return "unknown"
	}
}

// State is the per-load lifecycle. Failed transitions back to Loading
// only under StrategyRetry while attempts remain; every other terminal
// state is Loaded or Exhausted.
type State int

const (
	StateRequested State = iota
	StateLoading
	StateLoaded
	StateFailed
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Tracker receives load lifecycle notifications. The analytics collector
// implements it; a nil tracker disables notification.
type Tracker interface {
	TrackLoadStart(url string)
	TrackLoad(url string, success bool, err error)
	TrackError(url string, err error, retryCount int)
}

// Config holds loader defaults. Zero values fall back to documented defaults.
type Config struct {
	// MaxRetries bounds attempts per URL. Default: 3.
	MaxRetries int

	// InitialDelay seeds the exponential backoff. Default: 100ms.
	InitialDelay time.Duration

	// Breaker, when non-nil, gates every attempt through a circuit breaker.
	Breaker *Breaker

	// Tracker, when non-nil, is notified of every tracked attempt.
	Tracker Tracker
}

// ResolveOptions carries per-call recovery parameters.
type ResolveOptions struct {
	// FallbackURLs is the ordered fallback chain for StrategyFallback.
	FallbackURLs []string

	// MaxRetries/InitialDelay override the loader defaults when positive.
	MaxRetries   int
	InitialDelay time.Duration

	// OnFinalError is invoked with the terminal error for Retry, Fallback
	// and Placeholder strategies. Never invoked for Silent.
	OnFinalError func(url string, err error)
}

// Loader performs fetch attempts with bounded retry, exponential backoff,
// and a pluggable failure-recovery strategy. It owns no network code; the
// attempt primitive is injected.
type Loader struct {
	attempt AttemptFunc
	cfg     Config
	log     zerolog.Logger

	// sleep is swapped in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a loader around the injected attempt primitive.
func New(attempt AttemptFunc, cfg Config) *Loader {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}

	return &Loader{
		attempt: attempt,
		cfg:     cfg,
		log:     logging.Component("loader"),
		sleep:   sleepCtx,
	}
}

// sleepCtx waits for d or until ctx is done, whichever first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AttemptLoad performs a single fetch-and-decode attempt.
func (l *Loader) AttemptLoad(ctx context.Context, url string) bool {
	if l.cfg.Tracker != nil {
		l.cfg.Tracker.TrackLoadStart(url)
	}

	start := time.Now()
	err := l.tryOnce(ctx, url)
	elapsed := time.Since(start)

	metrics.RecordLoad(err == nil, elapsed)
	if l.cfg.Tracker != nil {
		l.cfg.Tracker.TrackLoad(url, err == nil, err)
	}

	if err != nil {
		l.log.Debug().Err(err).Str("url", url).Dur("elapsed", elapsed).Msg("load attempt failed")
		return false
	}
	return true
}

// RetryLoad attempts url up to maxRetries times with exponential backoff:
// attempt 0 runs immediately, and each failure waits
// initialDelay * 2^attempt before the loop continues. Returns true on the
// first success, false when all attempts fail or the context ends.
func (l *Loader) RetryLoad(ctx context.Context, url string, maxRetries int, initialDelay time.Duration) bool {
	if maxRetries <= 0 {
		maxRetries = l.cfg.MaxRetries
	}
	if initialDelay <= 0 {
		initialDelay = l.cfg.InitialDelay
	}

	if l.cfg.Tracker != nil {
		l.cfg.Tracker.TrackLoadStart(url)
	}

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			metrics.LoadRetries.Inc()
		}

		lastErr = l.tryOnce(ctx, url)
		if lastErr == nil {
			elapsed := time.Since(start)
			metrics.RecordLoad(true, elapsed)
			if l.cfg.Tracker != nil {
				l.cfg.Tracker.TrackLoad(url, true, nil)
			}
			return true
		}

		// Exponential backoff before the next pass through the loop.
		delay := initialDelay << uint(attempt)
		if err := l.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	elapsed := time.Since(start)
	metrics.RecordLoad(false, elapsed)
	if l.cfg.Tracker != nil {
		l.cfg.Tracker.TrackError(url, lastErr, maxRetries)
	}

	l.log.Debug().Err(lastErr).Str("url", url).Int("attempts", maxRetries).Msg("retries exhausted")
	return false
}

// Resolve attempts url under the given recovery strategy and returns the
// URL that ultimately loaded, or "" when the strategy resolved to no URL.
//
// Per-attempt state walks Requested -> Loading -> {Loaded, Failed};
// Failed re-enters Loading only under StrategyRetry (and per fallback
// link), ending in Loaded or Exhausted.
func (l *Loader) Resolve(ctx context.Context, url string, strategy Strategy, opts ResolveOptions) string {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = l.cfg.MaxRetries
	}
	initialDelay := opts.InitialDelay
	if initialDelay <= 0 {
		initialDelay = l.cfg.InitialDelay
	}

	switch strategy {
	case StrategyRetry:
		if l.RetryLoad(ctx, url, maxRetries, initialDelay) {
			metrics.RecordRecovery(strategy.String(), true)
			return url
		}
		l.finalError(strategy, url, &ExhaustedError{URL: url, Attempts: maxRetries, Cause: ErrTransient}, opts)
		return ""

	case StrategyFallback:
		chain := append([]string{url}, opts.FallbackURLs...)
		attempts := 0
		for _, candidate := range chain {
			// Retry budget resets per fallback link.
			if l.RetryLoad(ctx, candidate, maxRetries, initialDelay) {
				metrics.RecordRecovery(strategy.String(), true)
				return candidate
			}
			attempts += maxRetries
		}
		l.finalError(strategy, url, &ExhaustedError{URL: url, Attempts: attempts, Cause: ErrTransient}, opts)
		return ""

	case StrategyPlaceholder:
		if l.AttemptLoad(ctx, url) {
			metrics.RecordRecovery(strategy.String(), true)
			return url
		}
		l.finalError(strategy, url, &ExhaustedError{URL: url, Attempts: 1, Cause: ErrTransient}, opts)
		return ""

	case StrategySilent:
		if l.AttemptLoad(ctx, url) {
			metrics.RecordRecovery(strategy.String(), true)
			return url
		}
		// No callback: the AttemptLoad path above already recorded the
		// failure metric.
		metrics.RecordRecovery(strategy.String(), false)
		return ""

	default:
		l.log.Error().Int("strategy", int(strategy)).Str("url", url).Msg("unknown recovery strategy")
		return ""
	}
}

// finalError records an exhausted resolution and invokes the caller's
// final error callback.
func (l *Loader) finalError(strategy Strategy, url string, err *ExhaustedError, opts ResolveOptions) {
	metrics.RecordRecovery(strategy.String(), false)
	l.log.Warn().Err(err).Str("url", url).Str("strategy", strategy.String()).Msg("load exhausted")

	if opts.OnFinalError != nil {
		opts.OnFinalError(url, err)
	}
}

// tryOnce runs one attempt, through the circuit breaker when configured.
func (l *Loader) tryOnce(ctx context.Context, url string) error {
	if l.cfg.Breaker != nil {
		return l.cfg.Breaker.Execute(func() error {
			return l.attempt(ctx, url)
		})
	}
	return l.attempt(ctx, url)
}
