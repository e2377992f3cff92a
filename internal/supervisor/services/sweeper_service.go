// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixelfetch/pixelfetch/internal/logging"
)

// Sweeper is the slice of the cache store the sweeper service needs.
type Sweeper interface {
	SweepExpired() int
}

// SweeperService periodically evicts expired cache entries. It replaces
// the store's internal janitor goroutine in server mode so the sweep
// loop is restarted by the supervisor if it ever panics.
type SweeperService struct {
	store    Sweeper
	interval time.Duration
	log      zerolog.Logger
}

// NewSweeperService creates a sweeper running at the given interval.
func NewSweeperService(store Sweeper, interval time.Duration) *SweeperService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweeperService{
		store:    store,
		interval: interval,
		log:      logging.Component("sweeper"),
	}
}

// Serve implements suture.Service.
func (s *SweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.store.SweepExpired(); n > 0 {
				s.log.Debug().Int("evicted", n).Msg("swept expired cache entries")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer; suture uses it in event logs.
func (s *SweeperService) String() string {
	return "cache-sweeper"
}
