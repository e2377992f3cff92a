// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package loader

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pixelfetch/pixelfetch/internal/logging"
	"github.com/pixelfetch/pixelfetch/internal/metrics"
)

// BreakerConfig tunes the circuit breaker around the load attempt path.
type BreakerConfig struct {
	// Name labels the breaker in logs and metrics. Default: "image-loader".
	Name string

	// MinRequests is the minimum request count before the failure rate
	// is considered statistically meaningful. Default: 10.
	MinRequests uint32

	// FailureRate opens the circuit when the measured failure ratio
	// meets or exceeds it. Default: 0.6.
	FailureRate float64

	// Timeout is how long the circuit stays open before probing with
	// half-open requests. Default: 2 minutes.
	Timeout time.Duration
}

// Breaker wraps load attempts in a circuit breaker so a failing origin
// stops consuming retry budget across many URLs at once. An open circuit
// rejects attempts immediately; rejections count as transient failures
// from the caller's point of view.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreaker creates a circuit breaker with the given configuration.
// Opens after FailureRate failures with at least MinRequests observed.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Name == "" {
		cfg.Name = "image-loader"
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 10
	}
	if cfg.FailureRate <= 0 {
		cfg.FailureRate = 0.6
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	log := logging.Component("breaker")
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 3,           // Allow 3 probe requests in half-open state
		Interval:    time.Minute, // Reset counts after 1 minute in closed state
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.FailureRate

			if shouldTrip {
				log.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			log.Info().Str("name", name).Str("from", fromStr).Str("to", toStr).Msg("state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &Breaker{cb: cb, name: cfg.Name}
}

// Execute runs fn under circuit breaker protection. When the circuit is
// open or half-open capacity is exhausted, fn is not called and the
// rejection error is returned.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// State reports the current breaker state as a string.
func (b *Breaker) State() string {
	return stateToString(b.cb.State())
}

// IsRejection reports whether err was produced by the breaker itself
// rather than the wrapped attempt.
func IsRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
