// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pixelfetch/pixelfetch/internal/backend"
)

func TestStore_CacheAndIsCached(t *testing.T) {
	s := New(Options{})
	defer s.Shutdown()

	s.CacheTTL("https://cdn.example.com/a.jpg", time.Minute)

	if !s.IsCached("https://cdn.example.com/a.jpg") {
		t.Error("Expected cached URL to be fresh")
	}
	if s.IsCached("https://cdn.example.com/missing.jpg") {
		t.Error("Expected unknown URL to miss")
	}
}

func TestStore_TTLExpiration(t *testing.T) {
	s := New(Options{})
	defer s.Shutdown()

	s.CacheTTL("a.jpg", 50*time.Millisecond)

	if !s.IsCached("a.jpg") {
		t.Error("Expected fresh entry before TTL elapses")
	}

	time.Sleep(60 * time.Millisecond)

	if s.IsCached("a.jpg") {
		t.Error("Expected entry to be expired after TTL")
	}

	// The stale entry must have been removed by the miss.
	if got := s.Stats().TotalEntries; got != 0 {
		t.Errorf("Expected stale entry evicted, got %d entries", got)
	}
}

func TestStore_IdempotentCache(t *testing.T) {
	s := New(Options{})
	defer s.Shutdown()

	s.CacheTTL("a.jpg", 50*time.Millisecond)
	s.CacheTTL("a.jpg", time.Minute)

	if got := s.Stats().TotalEntries; got != 1 {
		t.Fatalf("Expected exactly one entry after re-cache, got %d", got)
	}

	// The second, longer TTL must win.
	time.Sleep(60 * time.Millisecond)
	if !s.IsCached("a.jpg") {
		t.Error("Expected entry to carry the latest expiry")
	}
}

func TestStore_HitMissCounters(t *testing.T) {
	s := New(Options{})
	defer s.Shutdown()

	s.CacheTTL("a.jpg", time.Minute)

	s.IsCached("a.jpg")
	s.IsCached("a.jpg")
	s.IsCached("missing.jpg")

	stats := s.Stats()
	if stats.Hits != 2 {
		t.Errorf("Expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
}

func TestStore_SizeBoundEviction(t *testing.T) {
	s := New(Options{MaxSizeBytes: 1000})
	defer s.Shutdown()

	s.CacheSized("old.jpg", time.Minute, 400)
	time.Sleep(2 * time.Millisecond) // Distinct createdAt ordering
	s.CacheSized("mid.jpg", time.Minute, 400)
	time.Sleep(2 * time.Millisecond)
	s.CacheSized("new.jpg", time.Minute, 400)

	stats := s.Stats()
	if stats.TotalSizeBytes > 1000 {
		t.Errorf("Expected total size <= 1000 after eviction, got %d", stats.TotalSizeBytes)
	}

	// Oldest-first: old.jpg goes, newer entries stay.
	if s.IsCached("old.jpg") {
		t.Error("Expected oldest entry evicted by size bound")
	}
	if !s.IsCached("mid.jpg") || !s.IsCached("new.jpg") {
		t.Error("Expected newer entries to survive size eviction")
	}
}

func TestStore_UnknownSizeNeverSizeEvicted(t *testing.T) {
	s := New(Options{MaxSizeBytes: 500})
	defer s.Shutdown()

	// Unknown-size entry, then sized entries that overflow the bound.
	s.CacheSized("unknown.jpg", time.Minute, 0)
	time.Sleep(2 * time.Millisecond)
	s.CacheSized("big1.jpg", time.Minute, 400)
	time.Sleep(2 * time.Millisecond)
	s.CacheSized("big2.jpg", time.Minute, 400)

	// Unknown-size entry contributes 0 and must never be size-evicted,
	// even though it is the oldest.
	if !s.IsCached("unknown.jpg") {
		t.Error("Expected unknown-size entry to be invisible to size eviction")
	}
	if s.IsCached("big1.jpg") {
		t.Error("Expected oldest sized entry to be evicted instead")
	}
}

func TestStore_Invalidate(t *testing.T) {
	s := New(Options{})
	defer s.Shutdown()

	s.CacheTTL("a.jpg", time.Minute)
	s.Invalidate("a.jpg")

	if s.IsCached("a.jpg") {
		t.Error("Expected invalidated entry to miss")
	}

	// Invalidating a missing URL must be safe.
	s.Invalidate("missing.jpg")
}

func TestStore_Clear(t *testing.T) {
	s := New(Options{})
	defer s.Shutdown()

	s.CacheTTL("a.jpg", time.Minute)
	s.CacheTTL("b.jpg", time.Minute)
	s.IsCached("a.jpg")
	s.IsCached("missing.jpg")

	s.Clear()

	stats := s.Stats()
	if stats.TotalEntries != 0 {
		t.Errorf("Expected 0 entries after clear, got %d", stats.TotalEntries)
	}
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("Expected counters reset after clear, got hits=%d misses=%d", stats.Hits, stats.Misses)
	}
}

func TestStore_CachedURLs(t *testing.T) {
	s := New(Options{})
	defer s.Shutdown()

	s.CacheTTL("b.jpg", time.Minute)
	s.CacheTTL("a.jpg", time.Minute)

	urls := s.CachedURLs()
	if len(urls) != 2 {
		t.Fatalf("Expected 2 URLs, got %d", len(urls))
	}
	if urls[0] != "a.jpg" || urls[1] != "b.jpg" {
		t.Errorf("Expected sorted URLs [a.jpg b.jpg], got %v", urls)
	}
}

func TestStore_SweepExpired(t *testing.T) {
	s := New(Options{})
	defer s.Shutdown()

	s.CacheTTL("stale1.jpg", 10*time.Millisecond)
	s.CacheTTL("stale2.jpg", 10*time.Millisecond)
	s.CacheTTL("fresh.jpg", time.Minute)

	time.Sleep(20 * time.Millisecond)

	if removed := s.SweepExpired(); removed != 2 {
		t.Errorf("Expected 2 entries swept, got %d", removed)
	}
	if got := s.Stats().TotalEntries; got != 1 {
		t.Errorf("Expected 1 entry after sweep, got %d", got)
	}
}

func TestStore_EmptyURLIgnored(t *testing.T) {
	s := New(Options{})
	defer s.Shutdown()

	s.CacheTTL("", time.Minute)

	if got := s.Stats().TotalEntries; got != 0 {
		t.Errorf("Expected empty URL to be ignored, got %d entries", got)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(Options{MaxSizeBytes: 10000})
	defer s.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				url := string(rune('a'+n)) + ".jpg"
				s.CacheSized(url, time.Minute, 100)
				s.IsCached(url)
				if j%10 == 0 {
					s.Stats()
				}
			}
		}(i)
	}
	wg.Wait()

	if got := s.Stats().TotalEntries; got != 8 {
		t.Errorf("Expected 8 entries after concurrent writes, got %d", got)
	}
}

// recordingBackend captures forwarded commands for assertions.
type recordingBackend struct {
	mu          sync.Mutex
	cached      []string
	invalidated []string
	cleared     int
}

func (r *recordingBackend) CacheImage(ctx context.Context, url string, ttl time.Duration, sizeBytes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = append(r.cached, url)
	return nil
}

func (r *recordingBackend) InvalidateImage(ctx context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, url)
	return nil
}

func (r *recordingBackend) ClearCache(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
	return nil
}

func (r *recordingBackend) CacheSize(ctx context.Context) (backend.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return backend.Stats{Entries: len(r.cached)}, nil
}

func (r *recordingBackend) Close() error { return nil }

func TestStore_ForwardsBackendCommands(t *testing.T) {
	rb := &recordingBackend{}
	s := New(Options{Backend: rb})

	s.CacheTTL("a.jpg", time.Minute)
	s.Invalidate("a.jpg")
	s.Clear()

	// Shutdown drains the forwarding queue.
	s.Shutdown()

	rb.mu.Lock()
	defer rb.mu.Unlock()
	if len(rb.cached) != 1 || rb.cached[0] != "a.jpg" {
		t.Errorf("Expected CACHE_IMAGE forwarded for a.jpg, got %v", rb.cached)
	}
	if len(rb.invalidated) != 1 || rb.invalidated[0] != "a.jpg" {
		t.Errorf("Expected INVALIDATE_IMAGE forwarded, got %v", rb.invalidated)
	}
	if rb.cleared != 1 {
		t.Errorf("Expected CLEAR_CACHE forwarded once, got %d", rb.cleared)
	}
}

func TestStore_CacheAfterShutdownDoesNotPanic(t *testing.T) {
	s := New(Options{Backend: backend.NewNoopBackend()})
	s.Shutdown()

	// In-memory operations must keep working; backend forwarding stops.
	s.CacheTTL("a.jpg", time.Minute)
	if !s.IsCached("a.jpg") {
		t.Error("Expected in-memory caching to work after shutdown")
	}
}

// slowBackend blocks CacheSize until the context is done.
type slowBackend struct{ backend.NoopBackend }

func (slowBackend) CacheSize(ctx context.Context) (backend.Stats, error) {
	<-ctx.Done()
	return backend.Stats{}, ctx.Err()
}

func TestStore_BackendStatsTimeout(t *testing.T) {
	s := New(Options{Backend: slowBackend{}, RequestTimeout: 30 * time.Millisecond})
	defer s.Shutdown()

	start := time.Now()
	stats := s.BackendStats(context.Background())
	elapsed := time.Since(start)

	if stats != (backend.Stats{}) {
		t.Errorf("Expected empty stats on timeout, got %+v", stats)
	}
	if elapsed > time.Second {
		t.Errorf("Expected bounded round trip, took %v", elapsed)
	}
}

func TestStore_Rehydrate(t *testing.T) {
	dir := t.TempDir()

	b, err := backend.NewBadgerBackend(dir)
	if err != nil {
		t.Fatalf("Failed to open badger backend: %v", err)
	}

	first := New(Options{Backend: b})
	first.CacheSized("persisted.jpg", time.Minute, 512)
	first.Shutdown() // Drains the CACHE_IMAGE command

	// Simulated restart: fresh store over the same backend.
	second := New(Options{Backend: b})
	defer func() {
		second.Shutdown()
		if err := b.Close(); err != nil {
			t.Errorf("Failed to close backend: %v", err)
		}
	}()

	if err := second.Rehydrate(context.Background(), b); err != nil {
		t.Fatalf("Rehydrate failed: %v", err)
	}

	if !second.IsCached("persisted.jpg") {
		t.Error("Expected rehydrated entry to answer IsCached")
	}
}
