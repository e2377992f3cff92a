// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

/*
Package preload schedules image preloading through a stable priority
queue drained by a bounded set of concurrent loads.

# Scheduling Model

A batch enters through Preload with a strategy and priority. URLs that
are empty, already cached, already in flight, or already queued are
filtered out. The remainder enter a priority queue ordered by rank
(high < medium < low) with FIFO order within a rank.

The drain loop pops the highest-priority item while the in-flight set
has capacity, dispatches a goroutine per item, and continues draining
as completions free slots. The in-flight set never exceeds the
concurrency ceiling at any observable instant. The queue determines
dispatch order only; network latency determines completion order.

# Strategies

  - Immediate: enqueue at the requested priority and drain now
  - Navigation: Immediate, but the priority is forced to high
  - Hover: one rate-limited best-effort attempt per URL, bypassing the
    queue and the in-flight set entirely
  - Viewport: each URL is registered against a VisibilitySignal and
    enqueued at low priority when it becomes visible; a watch is torn
    down after firing once or after the watch timeout (default 5s)

# Completion Signal

Preload returns a channel closed when every URL in the batch has been
resolved: loaded (successfully or not), filtered out, or expired at a
viewport watch. Failures are isolated per item; one exhausted load
never aborts the rest of the batch.

# Usage

	store := cache.New(cache.Options{DefaultTTL: 5 * time.Minute})
	ldr := loader.New(fetch, loader.Config{})
	s := preload.NewScheduler(store, ldr, sig, preload.Config{MaxConcurrent: 3})

	done := s.Preload(ctx, urls, preload.Options{
	    Strategy: preload.StrategyImmediate,
	    Priority: preload.PriorityMedium,
	})
	<-done
*/
package preload
