// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

/*
Package cache implements the image URL cache store.

The store tracks which remote image URLs are currently considered fresh.
It does not hold pixel data; it manages scheduling and bookkeeping around
an external loader primitive.

# Semantics

  - TTL expiry: IsCached answers true only while now < expiresAt; a stale
    lookup evicts the entry and counts a miss. A background janitor sweeps
    expired entries between lookups.
  - Size bound: insertions that push the estimated total above the
    configured limit evict oldest-by-createdAt entries until the total is
    back under it. Sizes are caller-supplied estimates; entries with
    unknown size (0) contribute nothing and are never removed by this
    path.
  - Idempotency: re-caching a URL keeps exactly one entry with the latest
    expiry.

# Persistence

When a backend.PersistentBackend is configured, mutations are mirrored to
it fire-and-forget through a bounded single-worker queue (see
forwarder.go). Backend failures are logged and counted, never surfaced to
cache callers. GET_CACHE_SIZE is the only round trip and is bounded by a
deadline with empty stats on timeout. Warm start rehydrates unexpired
entries from a Rehydrater-capable backend.

# Lifecycle

Stores are explicitly owned instances: New constructs one, StartJanitor
begins the sweep loop, Shutdown stops it and drains the forwarder. Tests
create isolated instances freely.
*/
package cache
