// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

/*
Package backend defines the persistent cache backend protocol and its
implementations.

The in-memory cache store optionally mirrors its state to a durable
backend through four commands:

	CACHE_IMAGE      {url, ttl, size}  store/refresh an entry
	INVALIDATE_IMAGE {url}             drop one entry
	CLEAR_CACHE      {}                drop all entries
	GET_CACHE_SIZE   {}                report occupancy (bounded round trip)

Write commands are fire-and-forget: the store's forwarder queues them and
a failure is logged and counted, never surfaced to cache callers.
GET_CACHE_SIZE is the only request/response exchange and is bounded by a
context deadline (5s by default); on timeout the caller receives empty
stats.

Two implementations ship:

  - BadgerBackend: durable storage on BadgerDB with native key TTL, plus
    Entries() for warm start after restarts
  - NoopBackend: for environments and tests without persistence
*/
package backend
