// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package cache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixelfetch/pixelfetch/internal/backend"
	"github.com/pixelfetch/pixelfetch/internal/logging"
	"github.com/pixelfetch/pixelfetch/internal/metrics"
)

// Entry represents a cached image URL with expiration bookkeeping.
// Invariant: ExpiresAt is strictly after CreatedAt.
type Entry struct {
	URL       string
	CreatedAt time.Time
	ExpiresAt time.Time

	// SizeBytes is the caller-supplied size estimate. 0 means unknown;
	// unknown entries contribute nothing to the size total and are
	// invisible to size-based eviction.
	SizeBytes int64

	// HitCount is incremented on every fresh IsCached lookup.
	HitCount int64
}

// Stats is a derived snapshot of store occupancy, recomputed on demand.
type Stats struct {
	TotalEntries   int   `json:"total_entries"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
	Hits           int64 `json:"hits"`
	Misses         int64 `json:"misses"`
}

// Options configures a Store. Zero values fall back to documented defaults.
type Options struct {
	// DefaultTTL is applied by Cache(). Default: 5 minutes.
	DefaultTTL time.Duration

	// MaxSizeBytes bounds the estimated total size; 0 disables size eviction.
	MaxSizeBytes int64

	// Backend, when non-nil, receives fire-and-forget cache commands.
	Backend backend.PersistentBackend

	// QueueSize bounds the backend forwarding queue. Default: 1024.
	QueueSize int

	// RequestTimeout bounds BackendStats round trips. Default: 5 seconds.
	RequestTimeout time.Duration
}

// Store tracks which image URLs are currently considered fresh.
//
// The store is an explicitly owned instance: construct one with New, share
// it by reference, and call Shutdown when done. It is safe for concurrent
// use from multiple goroutines.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	defaultTTL     time.Duration
	maxSizeBytes   int64
	requestTimeout time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	forwarder *forwarder // nil when no backend is configured
	log       zerolog.Logger

	janitorStop chan struct{}
	janitorOnce sync.Once
}

// New creates a cache store with the given options.
func New(opts Options) *Store {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 5 * time.Minute
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	s := &Store{
		entries:        make(map[string]*Entry),
		defaultTTL:     opts.DefaultTTL,
		maxSizeBytes:   opts.MaxSizeBytes,
		requestTimeout: opts.RequestTimeout,
		log:            logging.Component("cache"),
		janitorStop:    make(chan struct{}),
	}

	if opts.Backend != nil {
		s.forwarder = newForwarder(opts.Backend, opts.QueueSize)
	}

	return s
}

// Cache inserts or replaces the entry for url using the default TTL.
func (s *Store) Cache(url string) {
	s.CacheTTL(url, s.defaultTTL)
}

// CacheTTL inserts or replaces the entry for url with an explicit TTL.
func (s *Store) CacheTTL(url string, ttl time.Duration) {
	s.CacheSized(url, ttl, 0)
}

// CacheSized inserts or replaces the entry for url with an explicit TTL
// and a caller-supplied size estimate (0 = unknown). Re-caching the same
// URL keeps exactly one entry, with the latest expiry.
//
// If a persistent backend is configured, a CACHE_IMAGE command is
// forwarded asynchronously; forwarding failure never reaches the caller.
func (s *Store) CacheSized(url string, ttl time.Duration, sizeBytes int64) {
	if url == "" || ttl <= 0 {
		return
	}

	now := time.Now()
	s.mu.Lock()
	s.entries[url] = &Entry{
		URL:       url,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		SizeBytes: sizeBytes,
	}
	s.evictForSizeLocked()
	entries, size := s.occupancyLocked()
	s.mu.Unlock()

	metrics.UpdateCacheGauges(entries, size)

	if s.forwarder != nil {
		s.forwarder.enqueue(command{kind: cmdCacheImage, url: url, ttl: ttl, sizeBytes: sizeBytes})
	}
}

// IsCached reports whether url has a fresh entry.
// A hit increments the entry's hit count; a stale entry is evicted and
// counted as a miss.
func (s *Store) IsCached(url string) bool {
	now := time.Now()

	s.mu.RLock()
	entry, exists := s.entries[url]
	s.mu.RUnlock()

	if !exists {
		s.misses.Add(1)
		metrics.RecordCacheMiss()
		return false
	}

	if !now.Before(entry.ExpiresAt) {
		// Stale entry: evict and miss.
		s.mu.Lock()
		// Re-check under the write lock; a concurrent CacheSized may have
		// refreshed the entry since the read.
		if cur, ok := s.entries[url]; ok && !now.Before(cur.ExpiresAt) {
			delete(s.entries, url)
			metrics.RecordEviction("expired")
		}
		s.mu.Unlock()

		s.misses.Add(1)
		metrics.RecordCacheMiss()
		return false
	}

	atomic.AddInt64(&entry.HitCount, 1)
	s.hits.Add(1)
	metrics.RecordCacheHit()
	return true
}

// Invalidate removes the entry for url and forwards INVALIDATE_IMAGE to
// the backend if configured.
func (s *Store) Invalidate(url string) {
	s.mu.Lock()
	_, existed := s.entries[url]
	delete(s.entries, url)
	entries, size := s.occupancyLocked()
	s.mu.Unlock()

	if existed {
		metrics.RecordEviction("invalidated")
		metrics.UpdateCacheGauges(entries, size)
	}

	if s.forwarder != nil {
		s.forwarder.enqueue(command{kind: cmdInvalidateImage, url: url})
	}
}

// Clear drops all entries, resets hit/miss counters, and forwards
// CLEAR_CACHE to the backend if configured.
func (s *Store) Clear() {
	s.mu.Lock()
	cleared := len(s.entries)
	s.entries = make(map[string]*Entry)
	s.mu.Unlock()

	s.hits.Store(0)
	s.misses.Store(0)

	for i := 0; i < cleared; i++ {
		metrics.RecordEviction("cleared")
	}
	metrics.UpdateCacheGauges(0, 0)

	if s.forwarder != nil {
		s.forwarder.enqueue(command{kind: cmdClearCache})
	}
}

// Stats returns a snapshot of current occupancy and counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	entries, size := s.occupancyLocked()
	s.mu.RUnlock()

	return Stats{
		TotalEntries:   entries,
		TotalSizeBytes: size,
		Hits:           s.hits.Load(),
		Misses:         s.misses.Load(),
	}
}

// CachedURLs returns the URLs of all current entries, including any that
// have expired but not yet been swept.
func (s *Store) CachedURLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	urls := make([]string, 0, len(s.entries))
	for url := range s.entries {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// BackendStats performs a GET_CACHE_SIZE round trip against the backend,
// bounded by the configured request timeout. Returns empty stats when no
// backend is configured, on error, or on timeout.
func (s *Store) BackendStats(ctx context.Context) backend.Stats {
	if s.forwarder == nil {
		return backend.Stats{}
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	stats, err := s.forwarder.backend.CacheSize(ctx)
	metrics.RecordBackendCommand("get_cache_size", err)
	if err != nil {
		s.log.Warn().Err(err).Msg("backend size request failed")
		return backend.Stats{}
	}
	return stats
}

// Rehydrate loads unexpired entries from a warm-start capable backend.
// Existing in-memory entries for the same URL are kept (memory wins).
func (s *Store) Rehydrate(ctx context.Context, r backend.Rehydrater) error {
	persisted, err := r.Entries(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	restored := 0

	s.mu.Lock()
	for i := range persisted {
		p := persisted[i]
		if !p.ExpiresAt.After(now) {
			continue
		}
		if _, exists := s.entries[p.URL]; exists {
			continue
		}
		s.entries[p.URL] = &Entry{
			URL:       p.URL,
			CreatedAt: p.CreatedAt,
			ExpiresAt: p.ExpiresAt,
			SizeBytes: p.SizeBytes,
		}
		restored++
	}
	s.evictForSizeLocked()
	entries, size := s.occupancyLocked()
	s.mu.Unlock()

	metrics.UpdateCacheGauges(entries, size)
	s.log.Info().Int("restored", restored).Msg("cache rehydrated from backend")
	return nil
}

// StartJanitor begins periodic sweeping of expired entries.
// It returns immediately; the sweep goroutine runs until Shutdown.
func (s *Store) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.SweepExpired()
			case <-s.janitorStop:
				return
			}
		}
	}()
}

// SweepExpired removes all expired entries and returns how many were removed.
func (s *Store) SweepExpired() int {
	now := time.Now()

	s.mu.Lock()
	removed := 0
	for url, entry := range s.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(s.entries, url)
			removed++
		}
	}
	entries, size := s.occupancyLocked()
	s.mu.Unlock()

	for i := 0; i < removed; i++ {
		metrics.RecordEviction("expired")
	}
	metrics.UpdateCacheGauges(entries, size)

	if removed > 0 {
		s.log.Debug().Int("removed", removed).Msg("swept expired entries")
	}
	return removed
}

// Shutdown stops the janitor and drains the backend forwarder.
// The store remains usable for in-memory operations afterwards, but no
// further backend commands are forwarded.
func (s *Store) Shutdown() {
	s.janitorOnce.Do(func() {
		close(s.janitorStop)
	})
	if s.forwarder != nil {
		s.forwarder.close()
	}
}

// occupancyLocked computes entry count and estimated total size.
// Must be called with at least a read lock held.
func (s *Store) occupancyLocked() (int, int64) {
	var size int64
	for _, entry := range s.entries {
		size += entry.SizeBytes
	}
	return len(s.entries), size
}

// evictForSizeLocked enforces the size bound by removing oldest entries
// first. Entries with unknown size (0) are skipped: removing them cannot
// reduce the total, so they are never evicted by this path.
// Must be called with the write lock held.
func (s *Store) evictForSizeLocked() {
	if s.maxSizeBytes <= 0 {
		return
	}

	_, total := s.occupancyLocked()
	if total <= s.maxSizeBytes {
		return
	}

	sized := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if entry.SizeBytes > 0 {
			sized = append(sized, entry)
		}
	}
	sort.Slice(sized, func(i, j int) bool {
		return sized[i].CreatedAt.Before(sized[j].CreatedAt)
	})

	for _, entry := range sized {
		if total <= s.maxSizeBytes {
			break
		}
		delete(s.entries, entry.URL)
		total -= entry.SizeBytes
		metrics.RecordEviction("size")
	}
}
