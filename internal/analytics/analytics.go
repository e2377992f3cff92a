// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package analytics

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pixelfetch/pixelfetch/internal/logging"
)

// LoadMetric is one tracked load attempt. Created at TrackLoadStart and
// finalized by TrackLoad or TrackError.
type LoadMetric struct {
	URL          string    `json:"url"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	LoadTimeMs   int64     `json:"load_time_ms"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RetryCount   int       `json:"retry_count,omitempty"`
}

// Interaction is one tracked user interaction, such as a hover or a
// click on an image element.
type Interaction struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	URL        string            `json:"url"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Config tunes the collector.
type Config struct {
	// Enabled gates all tracking. False makes every call a hard no-op.
	Enabled bool

	// SampleRate in [0.0, 1.0] probabilistically skips tracking calls to
	// bound overhead. 1.0 tracks everything.
	SampleRate float64

	// MaxMetrics bounds retained load metrics and interactions. When the
	// bound is reached the oldest entries are dropped. Default: 10000.
	MaxMetrics int
}

// Collector records load timing and user interactions. It is safe for
// concurrent use and implements the loader's Tracker interface.
type Collector struct {
	cfg Config
	log zerolog.Logger

	mu           sync.Mutex
	starts       map[string]time.Time
	metrics      []LoadMetric
	interactions []Interaction

	// sample is swapped in tests for deterministic sampling decisions.
	sample func() float64
}

// NewCollector creates a collector with the given configuration.
func NewCollector(cfg Config) *Collector {
	if cfg.SampleRate < 0 {
		cfg.SampleRate = 0
	}
	if cfg.SampleRate > 1 {
		cfg.SampleRate = 1
	}
	if cfg.MaxMetrics <= 0 {
		cfg.MaxMetrics = 10000
	}

	return &Collector{
		cfg:    cfg,
		log:    logging.Component("analytics"),
		starts: make(map[string]time.Time),
		sample: rand.Float64,
	}
}

// shouldTrack applies the enabled gate and the sample rate.
// Must be called without the lock held.
func (c *Collector) shouldTrack() bool {
	if !c.cfg.Enabled {
		return false
	}
	if c.cfg.SampleRate >= 1 {
		return true
	}
	return c.sample() < c.cfg.SampleRate
}

// TrackLoadStart records the start timestamp for url.
func (c *Collector) TrackLoadStart(url string) {
	if !c.shouldTrack() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts[url] = time.Now()
}

// TrackLoad finalizes a LoadMetric for url. Elapsed time is computed
// from the matching TrackLoadStart, or from now when no start was
// recorded.
func (c *Collector) TrackLoad(url string, success bool, err error) {
	if !c.shouldTrack() {
		return
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	start, ok := c.starts[url]
	if !ok {
		start = now
	}
	delete(c.starts, url)

	m := LoadMetric{
		URL:        url,
		StartTime:  start,
		EndTime:    now,
		LoadTimeMs: now.Sub(start).Milliseconds(),
		Success:    success,
	}
	if err != nil {
		m.ErrorMessage = err.Error()
	}
	c.appendMetricLocked(m)
}

// TrackError finalizes a failed LoadMetric for url with the retry count
// that was consumed before giving up.
func (c *Collector) TrackError(url string, err error, retryCount int) {
	if !c.shouldTrack() {
		return
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	start, ok := c.starts[url]
	if !ok {
		start = now
	}
	delete(c.starts, url)

	m := LoadMetric{
		URL:        url,
		StartTime:  start,
		EndTime:    now,
		LoadTimeMs: now.Sub(start).Milliseconds(),
		Success:    false,
		RetryCount: retryCount,
	}
	if err != nil {
		m.ErrorMessage = err.Error()
	}
	c.appendMetricLocked(m)
}

// TrackInteraction records a user interaction with optional metadata.
func (c *Collector) TrackInteraction(interactionType, url string, metadata map[string]string) {
	if !c.shouldTrack() {
		return
	}

	ev := Interaction{
		ID:         uuid.NewString(),
		Type:       interactionType,
		URL:        url,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.interactions = append(c.interactions, ev)
	if len(c.interactions) > c.cfg.MaxMetrics {
		c.interactions = c.interactions[len(c.interactions)-c.cfg.MaxMetrics:]
	}
}

// Metrics returns a copy of the retained load metrics.
func (c *Collector) Metrics() []LoadMetric {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LoadMetric, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// Interactions returns a copy of the retained interactions.
func (c *Collector) Interactions() []Interaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Interaction, len(c.interactions))
	copy(out, c.interactions)
	return out
}

// ClearMetrics drops all retained metrics, interactions and pending
// start timestamps.
func (c *Collector) ClearMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.starts = make(map[string]time.Time)
	c.metrics = nil
	c.interactions = nil
}

// appendMetricLocked appends m, dropping the oldest entries past the
// retention bound. Caller holds c.mu.
func (c *Collector) appendMetricLocked(m LoadMetric) {
	c.metrics = append(c.metrics, m)
	if len(c.metrics) > c.cfg.MaxMetrics {
		c.metrics = c.metrics[len(c.metrics)-c.cfg.MaxMetrics:]
	}
}
