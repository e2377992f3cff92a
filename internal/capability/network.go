// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package capability

import (
	"strings"
	"sync"
	"time"
)

// NetworkClass buckets observed connection quality.
type NetworkClass string

const (
	NetworkVerySlow NetworkClass = "very_slow"
	NetworkSlow     NetworkClass = "slow"
	NetworkFast     NetworkClass = "fast"
	NetworkUnknown  NetworkClass = "unknown"
)

// Class thresholds in Mbps. Anything at or above slowThresholdMbps but
// below fastThresholdMbps classifies as slow.
const (
	verySlowThresholdMbps = 1.0
	fastThresholdMbps     = 5.0
)

// defaultSampleWindow bounds how many throughput samples feed the
// rolling average.
const defaultSampleWindow = 16

// Estimator derives a NetworkClass from observed transfer throughput.
// Loads report (bytes, elapsed) pairs; the estimator keeps a rolling
// window of Mbps samples and classifies their average.
type Estimator struct {
	mu      sync.Mutex
	samples []float64
	window  int
	manual  NetworkClass // explicit client report, overrides samples
}

// NewEstimator creates an estimator with the given window size.
// window <= 0 uses the default.
func NewEstimator(window int) *Estimator {
	if window <= 0 {
		window = defaultSampleWindow
	}
	return &Estimator{window: window}
}

// RecordSample adds one observed transfer. Zero-duration and zero-byte
// transfers are ignored.
func (e *Estimator) RecordSample(bytes int64, elapsed time.Duration) {
	if bytes <= 0 || elapsed <= 0 {
		return
	}

	mbps := float64(bytes) * 8 / elapsed.Seconds() / 1e6

	e.mu.Lock()
	defer e.mu.Unlock()

	e.samples = append(e.samples, mbps)
	if len(e.samples) > e.window {
		e.samples = e.samples[len(e.samples)-e.window:]
	}
}

// SetEffectiveType applies a client-reported connection type, as in the
// Network Information API ("slow-2g", "2g", "3g", "4g"). An explicit
// report takes precedence over throughput samples until Reset.
// Unrecognized values are ignored.
func (e *Estimator) SetEffectiveType(effectiveType string) {
	var class NetworkClass
	switch strings.ToLower(strings.TrimSpace(effectiveType)) {
	case "slow-2g", "2g":
		class = NetworkVerySlow
	case "3g":
		class = NetworkSlow
	case "4g":
		class = NetworkFast
	default:
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.manual = class
}

// Class returns the current network class. An explicit client report
// wins; otherwise the rolling average of throughput samples is
// classified, and no data at all is Unknown.
func (e *Estimator) Class() NetworkClass {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.manual != "" {
		return e.manual
	}
	if len(e.samples) == 0 {
		return NetworkUnknown
	}

	var sum float64
	for _, s := range e.samples {
		sum += s
	}
	avg := sum / float64(len(e.samples))

	switch {
	case avg < verySlowThresholdMbps:
		return NetworkVerySlow
	case avg < fastThresholdMbps:
		return NetworkSlow
	default:
		return NetworkFast
	}
}

// AverageMbps returns the rolling average throughput, or 0 with no
// samples.
func (e *Estimator) AverageMbps() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range e.samples {
		sum += s
	}
	return sum / float64(len(e.samples))
}

// Reset drops all samples and any explicit client report.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.samples = nil
	e.manual = ""
}
