// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixelfetch/pixelfetch/internal/backend"
	"github.com/pixelfetch/pixelfetch/internal/logging"
	"github.com/pixelfetch/pixelfetch/internal/metrics"
)

type commandKind int

const (
	cmdCacheImage commandKind = iota
	cmdInvalidateImage
	cmdClearCache
)

func (k commandKind) String() string {
	switch k {
	case cmdCacheImage:
		return "cache_image"
	case cmdInvalidateImage:
		return "invalidate_image"
	case cmdClearCache:
		return "clear_cache"
	default:
		return "unknown"
	}
}

// command is one fire-and-forget write to the persistent backend.
type command struct {
	kind      commandKind
	url       string
	ttl       time.Duration
	sizeBytes int64
}

// forwarder decouples cache mutations from backend persistence: commands
// are queued on a bounded channel and applied by a single worker
// goroutine, so a slow or failing backend never blocks cache callers.
// When the queue is full the command is dropped, logged, and counted.
type forwarder struct {
	backend backend.PersistentBackend
	ch      chan command
	log     zerolog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once

	// closeMu serializes enqueue against close so a late cache call can
	// never send on a closed channel.
	closeMu sync.RWMutex
	closed  bool
}

func newForwarder(b backend.PersistentBackend, queueSize int) *forwarder {
	f := &forwarder{
		backend: b,
		ch:      make(chan command, queueSize),
		log:     logging.Component("cache-forwarder"),
	}

	f.wg.Add(1)
	go f.run()

	return f
}

// enqueue queues a command without blocking. Full queue drops the command;
// a closed forwarder silently discards it.
func (f *forwarder) enqueue(cmd command) {
	f.closeMu.RLock()
	defer f.closeMu.RUnlock()

	if f.closed {
		return
	}

	select {
	case f.ch <- cmd:
	default:
		metrics.BackendQueueDrops.Inc()
		f.log.Warn().Str("command", cmd.kind.String()).Str("url", cmd.url).Msg("backend queue full, command dropped")
	}
}

// run applies queued commands until the channel is closed.
func (f *forwarder) run() {
	defer f.wg.Done()

	for cmd := range f.ch {
		// Each command gets its own deadline so one stuck write cannot
		// wedge the queue indefinitely.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

		var err error
		switch cmd.kind {
		case cmdCacheImage:
			err = f.backend.CacheImage(ctx, cmd.url, cmd.ttl, cmd.sizeBytes)
		case cmdInvalidateImage:
			err = f.backend.InvalidateImage(ctx, cmd.url)
		case cmdClearCache:
			err = f.backend.ClearCache(ctx)
		}
		cancel()

		metrics.RecordBackendCommand(cmd.kind.String(), err)
		if err != nil {
			f.log.Warn().Err(err).Str("command", cmd.kind.String()).Str("url", cmd.url).Msg("backend command failed")
		}
	}
}

// close stops accepting commands and waits for queued ones to drain.
func (f *forwarder) close() {
	f.closeOnce.Do(func() {
		f.closeMu.Lock()
		f.closed = true
		close(f.ch)
		f.closeMu.Unlock()
	})
	f.wg.Wait()
}
