// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package preload

import (
	"sync"
)

// VisibilitySignal abstracts "this URL became visible" notifications for
// the Viewport strategy. Real deployments feed it from the client's
// intersection reports; tests and headless environments use NoopSignal.
type VisibilitySignal interface {
	// Subscribe returns a channel that receives at most one value when
	// url becomes visible.
	Subscribe(url string) <-chan struct{}

	// Unsubscribe tears down the watch for url. Safe to call after the
	// watch fired or was never registered.
	Unsubscribe(url string)
}

// ChannelSignal is a VisibilitySignal driven by explicit Notify calls.
type ChannelSignal struct {
	mu       sync.Mutex
	watchers map[string][]chan struct{}
}

// NewChannelSignal creates an empty signal with no watchers.
func NewChannelSignal() *ChannelSignal {
	return &ChannelSignal{watchers: make(map[string][]chan struct{})}
}

// Subscribe registers a watch for url.
func (s *ChannelSignal) Subscribe(url string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{}, 1)
	s.watchers[url] = append(s.watchers[url], ch)
	return ch
}

// Unsubscribe removes every watch for url.
func (s *ChannelSignal) Unsubscribe(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, url)
}

// Notify fires every watch registered for url and removes them. Each
// subscriber channel receives exactly one value.
func (s *ChannelSignal) Notify(url string) {
	s.mu.Lock()
	chans := s.watchers[url]
	delete(s.watchers, url)
	s.mu.Unlock()

	for _, ch := range chans {
		// Buffered channel, never blocks.
		ch <- struct{}{}
	}
}

// Watching reports how many URLs currently have registered watches.
func (s *ChannelSignal) Watching() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// NoopSignal never reports visibility. Viewport preloads registered
// against it expire at the watch timeout.
type NoopSignal struct{}

// Subscribe returns a channel that never fires.
func (NoopSignal) Subscribe(string) <-chan struct{} {
	return make(chan struct{})
}

// Unsubscribe is a no-op.
func (NoopSignal) Unsubscribe(string) {}
