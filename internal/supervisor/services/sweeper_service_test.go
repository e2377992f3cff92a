// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	sweeps atomic.Int32
}

func (s *countingSweeper) SweepExpired() int {
	s.sweeps.Add(1)
	return 1
}

func TestSweeperServiceSweepsOnInterval(t *testing.T) {
	sweeper := &countingSweeper{}
	svc := NewSweeperService(sweeper, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && sweeper.sweeps.Load() < 3 {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if got := sweeper.sweeps.Load(); got < 3 {
		t.Errorf("sweeps = %d, want at least 3", got)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestSweeperServiceDefaultsInterval(t *testing.T) {
	svc := NewSweeperService(&countingSweeper{}, 0)
	if svc.interval != time.Minute {
		t.Errorf("interval = %v, want 1m default", svc.interval)
	}
	if svc.String() != "cache-sweeper" {
		t.Errorf("String() = %q, want cache-sweeper", svc.String())
	}
}
