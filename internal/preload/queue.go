// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package preload

import (
	"sync"
	"time"
)

// Priority ranks queued preload work. Lower rank drains first.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ParsePriority maps a wire-format priority name to a Priority.
// Unknown names fall back to PriorityMedium.
func ParsePriority(s string) Priority {
	switch s {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// queueItem is one pending preload, keyed by URL.
type queueItem struct {
	url        string
	priority   Priority
	enqueuedAt time.Time
	batch      *sync.WaitGroup // completion signal for the originating batch, may be nil
	seq        uint64          // arrival order, breaks priority ties
	index      int             // index in the heap array, used for O(log n) updates
}

// priorityQueue is a stable min-heap ordered by (priority rank, arrival
// sequence). FIFO order is preserved within a rank.
//
// The heap maintains a parallel map for O(1) URL dedup.
type priorityQueue struct {
	mu      sync.RWMutex
	heap    []*queueItem
	byURL   map[string]*queueItem
	nextSeq uint64
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{
		heap:  make([]*queueItem, 0),
		byURL: make(map[string]*queueItem),
	}
}

// push adds a pending preload. A URL already queued is left untouched
// and push reports false.
func (q *priorityQueue) push(url string, priority Priority, batch *sync.WaitGroup) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.byURL[url]; exists {
		return false
	}

	item := &queueItem{
		url:        url,
		priority:   priority,
		enqueuedAt: time.Now(),
		batch:      batch,
		seq:        q.nextSeq,
		index:      len(q.heap),
	}
	q.nextSeq++

	q.heap = append(q.heap, item)
	q.byURL[url] = item
	q.bubbleUp(item.index)
	return true
}

// pop removes and returns the highest-priority item, or nil when empty.
func (q *priorityQueue) pop() *queueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return nil
	}
	return q.removeAt(0)
}

// contains reports whether url is queued.
func (q *priorityQueue) contains(url string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	_, ok := q.byURL[url]
	return ok
}

// len returns the number of queued items.
func (q *priorityQueue) len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.heap)
}

// drainAll removes and returns every queued item in priority order.
func (q *priorityQueue) drainAll() []*queueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var items []*queueItem
	for len(q.heap) > 0 {
		items = append(items, q.removeAt(0))
	}
	return items
}

// Internal heap operations (must be called with lock held)

// less orders by priority rank first, then by arrival sequence.
func (q *priorityQueue) less(i, j int) bool {
	a, b := q.heap[i], q.heap[j]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

// removeAt removes the element at the given index.
func (q *priorityQueue) removeAt(i int) *queueItem {
	n := len(q.heap) - 1
	item := q.heap[i]

	delete(q.byURL, item.url)

	if i == n {
		q.heap = q.heap[:n]
		return item
	}

	q.heap[i] = q.heap[n]
	q.heap[i].index = i
	q.heap = q.heap[:n]

	if !q.bubbleUp(i) {
		q.bubbleDown(i)
	}
	return item
}

// bubbleUp moves element at index i up to its correct position.
// Returns true if the element moved.
func (q *priorityQueue) bubbleUp(i int) bool {
	moved := false
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(i, parent) {
			break
		}
		q.swap(i, parent)
		i = parent
		moved = true
	}
	return moved
}

// bubbleDown moves element at index i down to its correct position.
func (q *priorityQueue) bubbleDown(i int) {
	n := len(q.heap)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2

		if left < n && q.less(left, smallest) {
			smallest = left
		}
		if right < n && q.less(right, smallest) {
			smallest = right
		}

		if smallest == i {
			break
		}

		q.swap(i, smallest)
		i = smallest
	}
}

// swap swaps elements at indices i and j.
func (q *priorityQueue) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.heap[i].index = i
	q.heap[j].index = j
}
