// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCacheHitMiss(t *testing.T) {
	hitsBefore := testutil.ToFloat64(CacheHits)
	missesBefore := testutil.ToFloat64(CacheMisses)

	RecordCacheHit()
	RecordCacheHit()
	RecordCacheMiss()

	if got := testutil.ToFloat64(CacheHits) - hitsBefore; got != 2 {
		t.Errorf("Expected 2 hits recorded, got %v", got)
	}
	if got := testutil.ToFloat64(CacheMisses) - missesBefore; got != 1 {
		t.Errorf("Expected 1 miss recorded, got %v", got)
	}
}

func TestRecordEviction(t *testing.T) {
	before := testutil.ToFloat64(CacheEvictions.WithLabelValues("expired"))

	RecordEviction("expired")

	if got := testutil.ToFloat64(CacheEvictions.WithLabelValues("expired")) - before; got != 1 {
		t.Errorf("Expected 1 expired eviction recorded, got %v", got)
	}
}

func TestUpdateCacheGauges(t *testing.T) {
	UpdateCacheGauges(42, 1024)

	if got := testutil.ToFloat64(CacheEntries); got != 42 {
		t.Errorf("Expected entries gauge 42, got %v", got)
	}
	if got := testutil.ToFloat64(CacheSizeBytes); got != 1024 {
		t.Errorf("Expected size gauge 1024, got %v", got)
	}
}

func TestRecordLoad(t *testing.T) {
	RecordLoad(true, 10*time.Millisecond)
	RecordLoad(false, 50*time.Millisecond)

	// Histogram observation counts are validated via CollectAndCount to
	// avoid depending on bucket internals.
	if n := testutil.CollectAndCount(LoadDuration); n == 0 {
		t.Error("Expected load duration histogram to have observations")
	}
}

func TestRecordRecovery(t *testing.T) {
	tests := []struct {
		strategy string
		resolved bool
		outcome  string
	}{
		{"retry", false, "exhausted"},
		{"fallback", true, "resolved"},
		{"placeholder", false, "exhausted"},
		{"silent", false, "exhausted"},
	}

	for _, tt := range tests {
		before := testutil.ToFloat64(LoadRecoveries.WithLabelValues(tt.strategy, tt.outcome))
		RecordRecovery(tt.strategy, tt.resolved)
		after := testutil.ToFloat64(LoadRecoveries.WithLabelValues(tt.strategy, tt.outcome))
		if after-before != 1 {
			t.Errorf("RecordRecovery(%q, %v): expected %s counter to increment", tt.strategy, tt.resolved, tt.outcome)
		}
	}
}

func TestRecordBackendCommand(t *testing.T) {
	successBefore := testutil.ToFloat64(BackendCommands.WithLabelValues("cache_image", "success"))
	failureBefore := testutil.ToFloat64(BackendCommands.WithLabelValues("cache_image", "failure"))

	RecordBackendCommand("cache_image", nil)
	RecordBackendCommand("cache_image", errors.New("backend unavailable"))

	if got := testutil.ToFloat64(BackendCommands.WithLabelValues("cache_image", "success")) - successBefore; got != 1 {
		t.Errorf("Expected 1 success command, got %v", got)
	}
	if got := testutil.ToFloat64(BackendCommands.WithLabelValues("cache_image", "failure")) - failureBefore; got != 1 {
		t.Errorf("Expected 1 failure command, got %v", got)
	}
}
