// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package preload

import (
	"fmt"
	"testing"
)

func TestQueuePriorityOrdering(t *testing.T) {
	q := newPriorityQueue()

	q.push("low.png", PriorityLow, nil)
	q.push("high.png", PriorityHigh, nil)
	q.push("medium.png", PriorityMedium, nil)

	want := []string{"high.png", "medium.png", "low.png"}
	for i, expected := range want {
		item := q.pop()
		if item == nil {
			t.Fatalf("pop %d returned nil", i)
		}
		if item.url != expected {
			t.Errorf("pop %d = %q, want %q", i, item.url, expected)
		}
	}
	if q.pop() != nil {
		t.Error("expected empty queue after draining")
	}
}

func TestQueueFIFOWithinRank(t *testing.T) {
	q := newPriorityQueue()

	for i := 0; i < 10; i++ {
		q.push(fmt.Sprintf("img-%d.png", i), PriorityMedium, nil)
	}

	for i := 0; i < 10; i++ {
		item := q.pop()
		want := fmt.Sprintf("img-%d.png", i)
		if item.url != want {
			t.Errorf("pop %d = %q, want %q", i, item.url, want)
		}
	}
}

func TestQueueInterleavedRanks(t *testing.T) {
	q := newPriorityQueue()

	q.push("m1", PriorityMedium, nil)
	q.push("h1", PriorityHigh, nil)
	q.push("m2", PriorityMedium, nil)
	q.push("l1", PriorityLow, nil)
	q.push("h2", PriorityHigh, nil)

	want := []string{"h1", "h2", "m1", "m2", "l1"}
	for i, expected := range want {
		if item := q.pop(); item.url != expected {
			t.Errorf("pop %d = %q, want %q", i, item.url, expected)
		}
	}
}

func TestQueueDedupesByURL(t *testing.T) {
	q := newPriorityQueue()

	if !q.push("a.png", PriorityLow, nil) {
		t.Fatal("first push should succeed")
	}
	if q.push("a.png", PriorityHigh, nil) {
		t.Error("duplicate push should be rejected")
	}
	if q.len() != 1 {
		t.Errorf("len = %d, want 1", q.len())
	}

	// Original priority is retained.
	if item := q.pop(); item.priority != PriorityLow {
		t.Errorf("priority = %v, want PriorityLow", item.priority)
	}
}

func TestQueueContains(t *testing.T) {
	q := newPriorityQueue()

	q.push("a.png", PriorityMedium, nil)
	if !q.contains("a.png") {
		t.Error("expected a.png to be queued")
	}
	q.pop()
	if q.contains("a.png") {
		t.Error("popped URL should not be queued")
	}
}

func TestQueueDrainAll(t *testing.T) {
	q := newPriorityQueue()

	q.push("l", PriorityLow, nil)
	q.push("h", PriorityHigh, nil)
	q.push("m", PriorityMedium, nil)

	items := q.drainAll()
	if len(items) != 3 {
		t.Fatalf("drained %d items, want 3", len(items))
	}
	want := []string{"h", "m", "l"}
	for i, expected := range want {
		if items[i].url != expected {
			t.Errorf("drained[%d] = %q, want %q", i, items[i].url, expected)
		}
	}
	if q.len() != 0 {
		t.Errorf("len after drain = %d, want 0", q.len())
	}
}

func TestParsePriority(t *testing.T) {
	cases := map[string]Priority{
		"high":   PriorityHigh,
		"medium": PriorityMedium,
		"low":    PriorityLow,
		"bogus":  PriorityMedium,
		"":       PriorityMedium,
	}
	for in, want := range cases {
		if got := ParsePriority(in); got != want {
			t.Errorf("ParsePriority(%q) = %v, want %v", in, got, want)
		}
	}
}
