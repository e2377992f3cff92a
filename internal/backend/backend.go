// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package backend

import (
	"context"
	"time"
)

// Entry is the persisted view of a cached image.
type Entry struct {
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	SizeBytes int64     `json:"size_bytes"`
}

// Stats reports backend occupancy for GET_CACHE_SIZE requests.
type Stats struct {
	Entries   int   `json:"entries"`
	SizeBytes int64 `json:"size_bytes"`
}

// PersistentBackend is the four-command protocol between the in-memory
// cache store and an optional durable store.
//
// Write commands (CacheImage, InvalidateImage, ClearCache) are issued
// fire-and-forget by the store's forwarder: errors are logged and counted,
// never propagated to cache callers. CacheSize is the only round trip and
// is bounded by the caller's context deadline.
type PersistentBackend interface {
	// CacheImage stores or refreshes an entry.
	CacheImage(ctx context.Context, url string, ttl time.Duration, sizeBytes int64) error

	// InvalidateImage drops the entry for url. Unknown URLs are a no-op.
	InvalidateImage(ctx context.Context, url string) error

	// ClearCache drops all entries.
	ClearCache(ctx context.Context) error

	// CacheSize reports current occupancy.
	CacheSize(ctx context.Context) (Stats, error)

	// Close releases backend resources.
	Close() error
}

// Rehydrater is implemented by backends that can enumerate unexpired
// entries for warm start after a restart.
type Rehydrater interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// NoopBackend discards all commands. It stands in for environments
// without persistence and keeps the store's forwarding path exercised
// in tests.
type NoopBackend struct{}

// NewNoopBackend creates a backend that accepts and discards everything.
func NewNoopBackend() *NoopBackend {
	return &NoopBackend{}
}

func (n NoopBackend) CacheImage(ctx context.Context, url string, ttl time.Duration, sizeBytes int64) error {
	return nil
}

func (n NoopBackend) InvalidateImage(ctx context.Context, url string) error {
	return nil
}

func (n NoopBackend) ClearCache(ctx context.Context) error {
	return nil
}

func (n NoopBackend) CacheSize(ctx context.Context) (Stats, error) {
	return Stats{}, nil
}

func (n NoopBackend) Close() error {
	return nil
}
