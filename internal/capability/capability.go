// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package capability

import (
	"bytes"
	"image"
	"sync"

	// Registered decoders for the default probe.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog"

	"github.com/pixelfetch/pixelfetch/internal/logging"
)

// Format identifies an image delivery format.
type Format string

const (
	FormatAVIF     Format = "avif"
	FormatWebP     Format = "webp"
	FormatBaseline Format = "baseline" // JPEG/PNG, always deliverable
)

// formatPreference orders formats most-compressed-first.
var formatPreference = []Format{FormatAVIF, FormatWebP, FormatBaseline}

// sampleFor returns a known-good minimal encoded sample for format.
// The samples are the smallest valid encodings of a 1x1 image.
func sampleFor(format Format) []byte {
	switch format {
	case FormatAVIF:
		return avifSample
	case FormatWebP:
		return webpSample
	case FormatBaseline:
		return pngSample
	default:
		return nil
	}
}

var (
	// 1x1 transparent PNG.
	pngSample = []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
		0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
		0x42, 0x60, 0x82,
	}

	// 1x1 lossless WebP (VP8L).
	webpSample = []byte{
		0x52, 0x49, 0x46, 0x46, 0x1a, 0x00, 0x00, 0x00,
		0x57, 0x45, 0x42, 0x50, 0x56, 0x50, 0x38, 0x4c,
		0x0d, 0x00, 0x00, 0x00, 0x2f, 0x00, 0x00, 0x00,
		0x10, 0x07, 0x10, 0x11, 0x11, 0x88, 0x88, 0xfe,
		0x07, 0x00,
	}

	// AVIF ftyp header for a minimal still image.
	avifSample = []byte{
		0x00, 0x00, 0x00, 0x1c, 0x66, 0x74, 0x79, 0x70,
		0x61, 0x76, 0x69, 0x66, 0x00, 0x00, 0x00, 0x00,
		0x61, 0x76, 0x69, 0x66, 0x6d, 0x69, 0x66, 0x31,
		0x6d, 0x69, 0x61, 0x66,
	}
)

// ProbeFunc attempts to decode a known-good sample of format and reports
// whether the environment can handle it. Injectable so deployments with
// richer decoder sets (or client-reported support) can replace the
// default stdlib probe.
type ProbeFunc func(format Format, sample []byte) bool

// defaultProbe decodes the sample with the registered image decoders.
// Stdlib registration covers PNG, JPEG and GIF; AVIF and WebP report
// unsupported unless a decoder for them has been imported.
func defaultProbe(_ Format, sample []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(sample))
	return err == nil
}

// Capabilities is a memoized snapshot of the probing results.
type Capabilities struct {
	BestFormatSupported Format       `json:"best_format_supported"`
	NetworkClass        NetworkClass `json:"network_class"`
	DataSaverEnabled    bool         `json:"data_saver_enabled"`
	RecommendedQuality  int          `json:"recommended_quality"`
}

// Probe detects format support and derives delivery recommendations
// from the observed network class and the data-saver flag. Detections
// are memoized; ClearCache resets them.
type Probe struct {
	probe ProbeFunc
	log   zerolog.Logger

	mu        sync.Mutex
	formats   map[Format]bool
	dataSaver bool

	estimator *Estimator
}

// NewProbe creates a probe. A nil ProbeFunc uses the stdlib decoders.
func NewProbe(fn ProbeFunc) *Probe {
	if fn == nil {
		fn = defaultProbe
	}
	return &Probe{
		probe:     fn,
		log:       logging.Component("capability"),
		formats:   make(map[Format]bool),
		estimator: NewEstimator(0),
	}
}

// SupportsFormat reports whether format can be decoded. The detection
// runs once per format and is memoized until ClearCache.
func (p *Probe) SupportsFormat(format Format) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supportsLocked(format)
}

func (p *Probe) supportsLocked(format Format) bool {
	if supported, ok := p.formats[format]; ok {
		return supported
	}

	sample := sampleFor(format)
	supported := sample != nil && p.probe(format, sample)
	p.formats[format] = supported

	p.log.Debug().Str("format", string(format)).Bool("supported", supported).Msg("format probed")
	return supported
}

// BestSupportedFormat returns the most-compressed supported format,
// falling back to baseline.
func (p *Probe) BestSupportedFormat() Format {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range formatPreference {
		if p.supportsLocked(f) {
			return f
		}
	}
	return FormatBaseline
}

// Estimator exposes the throughput estimator feeding the network class.
func (p *Probe) Estimator() *Estimator {
	return p.estimator
}

// CurrentNetworkClass returns the class derived from observed samples.
func (p *Probe) CurrentNetworkClass() NetworkClass {
	return p.estimator.Class()
}

// SetDataSaver flips the client-reported data-saver flag.
func (p *Probe) SetDataSaver(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dataSaver = enabled
}

// DataSaverEnabled reports the client-reported data-saver flag.
func (p *Probe) DataSaverEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dataSaver
}

// RecommendedQuality derives a 1-100 encode quality from the network
// class. Data saver floors the quality regardless of class.
func (p *Probe) RecommendedQuality() int {
	if p.DataSaverEnabled() {
		return qualityFloor
	}

	switch p.estimator.Class() {
	case NetworkFast:
		return 85
	case NetworkSlow:
		return 60
	case NetworkVerySlow:
		return qualityFloor
	default:
		return 75
	}
}

// qualityFloor is the minimum delivered quality, used for very slow
// connections and whenever data saver is on.
const qualityFloor = 40

// Snapshot returns the current memoized capability view.
func (p *Probe) Snapshot() Capabilities {
	return Capabilities{
		BestFormatSupported: p.BestSupportedFormat(),
		NetworkClass:        p.CurrentNetworkClass(),
		DataSaverEnabled:    p.DataSaverEnabled(),
		RecommendedQuality:  p.RecommendedQuality(),
	}
}

// ClearCache resets all memoized detections, including throughput
// samples and the data-saver flag. Primarily for testing.
func (p *Probe) ClearCache() {
	p.mu.Lock()
	p.formats = make(map[Format]bool)
	p.dataSaver = false
	p.mu.Unlock()

	p.estimator.Reset()
}
