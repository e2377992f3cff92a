// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package preload

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pixelfetch/pixelfetch/internal/cache"
	"github.com/pixelfetch/pixelfetch/internal/loader"
	"github.com/pixelfetch/pixelfetch/internal/logging"
	"github.com/pixelfetch/pixelfetch/internal/metrics"
)

// Strategy selects how a preload batch is scheduled.
type Strategy int

const (
	// StrategyImmediate enqueues at the requested priority and drains now.
	StrategyImmediate Strategy = iota

	// StrategyNavigation behaves like Immediate but forces high priority.
	StrategyNavigation

	// StrategyHover bypasses the queue entirely: one rate-limited
	// lightweight attempt per URL, no retry escalation, no in-flight
	// bookkeeping.
	StrategyHover

	// StrategyViewport registers each URL against the visibility signal
	// and enqueues it at low priority when it becomes visible. A watch is
	// torn down after it fires or after the watch timeout.
	StrategyViewport
)

func (s Strategy) String() string {
	switch s {
	case StrategyImmediate:
		return "immediate"
	case StrategyNavigation:
		return "navigation"
	case StrategyHover:
		return "hover"
	case StrategyViewport:
		return "viewport"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a wire-format strategy name to a Strategy.
// Unknown names fall back to StrategyImmediate.
func ParseStrategy(s string) Strategy {
	switch s {
	case "navigation":
		return StrategyNavigation
	case "hover":
		return StrategyHover
	case "viewport":
		return StrategyViewport
	default:
		return StrategyImmediate
	}
}

// Options carries per-batch scheduling parameters. Zero values fall back
// to the scheduler's configured defaults.
type Options struct {
	Strategy Strategy
	Priority Priority

	// MaxConcurrent, when positive, replaces the configured in-flight
	// ceiling while this batch drains. Zero restores the configured value.
	MaxConcurrent int

	// Delay defers the entire batch before filtering begins.
	Delay time.Duration
}

// Config holds scheduler defaults.
type Config struct {
	// MaxConcurrent bounds the in-flight load set. Default: 3.
	MaxConcurrent int

	// ViewportWatchTimeout tears down a visibility watch that never
	// fires. Default: 5s.
	ViewportWatchTimeout time.Duration

	// HoverRatePerSecond rate-limits hover attempts. Default: 10.
	HoverRatePerSecond float64
}

// Scheduler accepts batches of URLs with a strategy and priority,
// deduplicates them against cache and in-flight state, and drains a
// stable priority queue through a bounded set of concurrent loads.
//
// The priority queue determines dispatch order, not completion order.
// The in-flight set never exceeds the concurrency ceiling.
type Scheduler struct {
	store  *cache.Store
	loader *loader.Loader
	sig    VisibilitySignal
	cfg    Config
	log    zerolog.Logger

	hoverLimiter *rate.Limiter

	mu            sync.Mutex
	queue         *priorityQueue
	inFlight      map[string]struct{}
	maxConcurrent int
	closed        bool
}

// NewScheduler creates a scheduler around the given cache store, loader
// and visibility signal. A nil signal disables viewport preloading
// beyond the watch timeout.
func NewScheduler(store *cache.Store, ldr *loader.Loader, sig VisibilitySignal, cfg Config) *Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.ViewportWatchTimeout <= 0 {
		cfg.ViewportWatchTimeout = 5 * time.Second
	}
	if cfg.HoverRatePerSecond <= 0 {
		cfg.HoverRatePerSecond = 10
	}
	if sig == nil {
		sig = NoopSignal{}
	}

	return &Scheduler{
		store:         store,
		loader:        ldr,
		sig:           sig,
		cfg:           cfg,
		log:           logging.Component("preload"),
		hoverLimiter:  rate.NewLimiter(rate.Limit(cfg.HoverRatePerSecond), int(cfg.HoverRatePerSecond)),
		queue:         newPriorityQueue(),
		inFlight:      make(map[string]struct{}),
		maxConcurrent: cfg.MaxConcurrent,
	}
}

// Preload schedules urls under the given options and returns a channel
// that is closed when every URL in the batch has been resolved: loaded,
// filtered out, or torn down by a viewport watch timeout.
func (s *Scheduler) Preload(ctx context.Context, urls []string, opts Options) <-chan struct{} {
	done := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(done)
		return done
	}
	// A per-batch override holds only while that batch drains. The next
	// batch with a zero MaxConcurrent resets the configured ceiling.
	if opts.MaxConcurrent > 0 {
		s.maxConcurrent = opts.MaxConcurrent
	} else {
		s.maxConcurrent = s.cfg.MaxConcurrent
	}
	s.mu.Unlock()

	go func() {
		defer close(done)

		if opts.Delay > 0 {
			timer := time.NewTimer(opts.Delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}

		var batch sync.WaitGroup

		switch opts.Strategy {
		case StrategyHover:
			s.hoverBatch(ctx, urls, &batch)
		case StrategyViewport:
			s.viewportBatch(ctx, urls, &batch)
		default:
			priority := opts.Priority
			if opts.Strategy == StrategyNavigation {
				priority = PriorityHigh
			}
			for _, url := range urls {
				s.enqueue(url, priority, opts.Strategy, &batch)
			}
			s.drain(ctx, opts.Strategy)
		}

		batch.Wait()
	}()

	return done
}

// QueueDepth returns the number of URLs waiting for dispatch.
func (s *Scheduler) QueueDepth() int {
	return s.queue.len()
}

// InFlight returns the current in-flight load count.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// Shutdown stops accepting new batches and discards queued work that has
// not been dispatched. Loads already in flight run to completion.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	discarded := s.queue.drainAll()
	s.mu.Unlock()

	for _, item := range discarded {
		if item.batch != nil {
			item.batch.Done()
		}
	}
	metrics.PreloadQueueDepth.Set(0)
}

// enqueue filters one URL and adds it to the priority queue. The batch
// WaitGroup is incremented only for URLs that were actually queued.
func (s *Scheduler) enqueue(url string, priority Priority, strategy Strategy, batch *sync.WaitGroup) {
	if url == "" {
		metrics.PreloadSkipped.WithLabelValues("empty").Inc()
		return
	}
	if s.store.IsCached(url) {
		metrics.PreloadSkipped.WithLabelValues("cached").Inc()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if _, inFlight := s.inFlight[url]; inFlight {
		metrics.PreloadSkipped.WithLabelValues("in_flight").Inc()
		return
	}

	batch.Add(1)
	if !s.queue.push(url, priority, batch) {
		// Already queued by a concurrent batch.
		batch.Done()
		metrics.PreloadSkipped.WithLabelValues("queued").Inc()
		return
	}
	metrics.PreloadQueueDepth.Set(float64(s.queue.len()))

	s.log.Debug().Str("url", url).Str("priority", priority.String()).Str("strategy", strategy.String()).Msg("enqueued")
}

// drain dispatches queued work while capacity remains. The pop and the
// in-flight insertion happen under one lock so the in-flight set can
// never exceed the ceiling. Completion drains re-enter here after
// Shutdown (in-flight loads run to completion), so a closed scheduler
// dispatches nothing and an emptied queue stops the loop.
func (s *Scheduler) drain(ctx context.Context, strategy Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.closed && len(s.inFlight) < s.maxConcurrent {
		item := s.queue.pop()
		if item == nil {
			break
		}
		s.inFlight[item.url] = struct{}{}

		metrics.PreloadQueueDepth.Set(float64(s.queue.len()))
		metrics.PreloadInFlight.Set(float64(len(s.inFlight)))
		metrics.PreloadDispatched.WithLabelValues(strategy.String()).Inc()

		go s.dispatch(ctx, item, strategy)
	}
}

// dispatch runs one load to completion, updates the cache on success,
// releases the in-flight slot and keeps draining.
func (s *Scheduler) dispatch(ctx context.Context, item *queueItem, strategy Strategy) {
	ok := s.loader.RetryLoad(ctx, item.url, 0, 0)
	if ok {
		s.store.Cache(item.url)
	}

	s.mu.Lock()
	delete(s.inFlight, item.url)
	metrics.PreloadInFlight.Set(float64(len(s.inFlight)))
	s.mu.Unlock()

	if item.batch != nil {
		item.batch.Done()
	}

	s.log.Debug().Str("url", item.url).Bool("loaded", ok).Str("strategy", strategy.String()).Msg("dispatch complete")

	s.drain(ctx, strategy)
}

// hoverBatch performs one best-effort attempt per URL. Hover loads never
// touch the queue or the in-flight set and carry no retry escalation.
func (s *Scheduler) hoverBatch(ctx context.Context, urls []string, batch *sync.WaitGroup) {
	for _, url := range urls {
		if url == "" {
			metrics.PreloadSkipped.WithLabelValues("empty").Inc()
			continue
		}
		if s.store.IsCached(url) {
			metrics.PreloadSkipped.WithLabelValues("cached").Inc()
			continue
		}
		if !s.hoverLimiter.Allow() {
			metrics.PreloadSkipped.WithLabelValues("rate_limited").Inc()
			continue
		}

		metrics.PreloadDispatched.WithLabelValues(StrategyHover.String()).Inc()

		batch.Add(1)
		go func(url string) {
			defer batch.Done()
			if s.loader.AttemptLoad(ctx, url) {
				s.store.Cache(url)
			}
		}(url)
	}
}

// viewportBatch registers a visibility watch per URL. A watch that fires
// enqueues the URL at low priority; a watch that never fires is torn
// down at the configured timeout.
func (s *Scheduler) viewportBatch(ctx context.Context, urls []string, batch *sync.WaitGroup) {
	for _, url := range urls {
		if url == "" {
			metrics.PreloadSkipped.WithLabelValues("empty").Inc()
			continue
		}
		if s.store.IsCached(url) {
			metrics.PreloadSkipped.WithLabelValues("cached").Inc()
			continue
		}

		batch.Add(1)
		go s.watchVisibility(ctx, url, batch)
	}
}

func (s *Scheduler) watchVisibility(ctx context.Context, url string, batch *sync.WaitGroup) {
	defer batch.Done()

	fired := s.sig.Subscribe(url)
	defer s.sig.Unsubscribe(url)

	timer := time.NewTimer(s.cfg.ViewportWatchTimeout)
	defer timer.Stop()

	select {
	case <-fired:
	case <-timer.C:
		metrics.PreloadSkipped.WithLabelValues("watch_timeout").Inc()
		s.log.Debug().Str("url", url).Msg("visibility watch expired")
		return
	case <-ctx.Done():
		return
	}

	// Visible now. The URL may have been cached while we waited.
	var inner sync.WaitGroup
	s.enqueue(url, PriorityLow, StrategyViewport, &inner)
	s.drain(ctx, StrategyViewport)
	inner.Wait()
}
