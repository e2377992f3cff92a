// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/pixelfetch/pixelfetch/internal/logging"
)

// Key prefix for BadgerDB storage
const imageKeyPrefix = "img:"

// BadgerBackend implements PersistentBackend using BadgerDB for durable
// storage. Entries survive process restarts; expiry is enforced both by
// the stored ExpiresAt field and by Badger's native key TTL.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend opens (or creates) a BadgerDB store at path.
func NewBadgerBackend(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logger is noisy; engine logging covers failures

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", path, err)
	}

	log := logging.Component("backend")
	log.Info().Str("path", path).Msg("badger backend opened")
	return &BadgerBackend{db: db}, nil
}

// NewBadgerBackendWithDB wraps an already-open BadgerDB handle.
// The caller retains ownership of the handle; Close is a no-op path for it.
func NewBadgerBackendWithDB(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

// CacheImage stores or refreshes an entry keyed by URL.
func (b *BadgerBackend) CacheImage(ctx context.Context, url string, ttl time.Duration, sizeBytes int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	entry := Entry{
		URL:       url,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		SizeBytes: sizeBytes,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(imageKeyPrefix+url), data).WithTTL(ttl)
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set entry: %w", err)
		}
		return nil
	})
}

// InvalidateImage drops the entry for url.
func (b *BadgerBackend) InvalidateImage(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(imageKeyPrefix + url))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete entry: %w", err)
		}
		return nil
	})
}

// ClearCache drops all image entries.
func (b *BadgerBackend) ClearCache(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.DropPrefix([]byte(imageKeyPrefix))
}

// CacheSize reports current occupancy by scanning the image prefix.
func (b *BadgerBackend) CacheSize(ctx context.Context) (Stats, error) {
	var stats Stats

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(imageKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			err := item.Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				stats.Entries++
				stats.SizeBytes += entry.SizeBytes
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Entries returns all unexpired entries for warm start.
func (b *BadgerBackend) Entries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	now := time.Now()

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(imageKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			err := item.Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				// Badger TTL lags the logical expiry by up to a GC cycle
				if entry.ExpiresAt.After(now) {
					entries = append(entries, entry)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close closes the underlying BadgerDB handle.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
