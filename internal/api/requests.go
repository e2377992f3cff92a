// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package api

// PreloadRequest asks the scheduler to warm one or more image URLs.
type PreloadRequest struct {
	// URLs to preload, in the order the caller wants them considered
	URLs []string `json:"urls" validate:"required,min=1,max=100,dive,required,url"`

	// Strategy selects the scheduling path (default immediate)
	Strategy string `json:"strategy,omitempty" validate:"omitempty,oneof=immediate navigation hover viewport"`

	// Priority ranks the batch within the queue (default medium)
	Priority string `json:"priority,omitempty" validate:"omitempty,oneof=high medium low"`

	// MaxConcurrent overrides the configured concurrency ceiling for
	// this batch when positive
	MaxConcurrent int `json:"max_concurrent,omitempty" validate:"omitempty,min=1,max=64"`

	// DelayMs defers scheduling by the given duration
	DelayMs int `json:"delay_ms,omitempty" validate:"omitempty,min=0,max=60000"`

	// Wait blocks the request until the batch settles instead of
	// returning 202 immediately
	Wait bool `json:"wait,omitempty"`
}

// CacheRequest inserts or refreshes a single cache entry.
type CacheRequest struct {
	URL string `json:"url" validate:"required,url"`

	// TTLMs overrides the configured TTL when positive
	TTLMs int `json:"ttl_ms,omitempty" validate:"omitempty,min=0"`

	// SizeBytes records the decoded size for eviction accounting;
	// zero means the size is unknown
	SizeBytes int64 `json:"size_bytes,omitempty" validate:"omitempty,min=0"`
}

// InvalidateRequest removes a single cache entry.
type InvalidateRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// InteractionRequest records a user interaction event.
type InteractionRequest struct {
	Type     string            `json:"type" validate:"required,oneof=click hover view navigation"`
	URL      string            `json:"url" validate:"required,url"`
	Metadata map[string]string `json:"metadata,omitempty" validate:"omitempty,max=32"`
}

// NetworkReportRequest lets the client report connection hints.
type NetworkReportRequest struct {
	// EffectiveType is the client-reported connection class
	EffectiveType string `json:"effective_type,omitempty" validate:"omitempty,oneof=slow-2g 2g 3g 4g"`

	// DataSaver reflects the client's data saver preference
	DataSaver *bool `json:"data_saver,omitempty"`
}

// VisibilityRequest reports that a URL entered the viewport.
type VisibilityRequest struct {
	URL string `json:"url" validate:"required,url"`
}
