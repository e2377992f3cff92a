// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

/*
Package capability negotiates image format and quality for a client
session.

Format support is detected once per format by attempting to decode an
embedded known-good minimal sample, then memoized until ClearCache.
The default probe uses the stdlib image decoders (PNG, JPEG, GIF);
deployments with AVIF or WebP decoders, or with client-reported
support, inject their own ProbeFunc. BestSupportedFormat walks the
preference order AVIF > WebP > baseline.

Network class is derived from a rolling window of observed transfer
throughput, or from an explicit client report in Network Information
API terms ("slow-2g", "2g", "3g", "4g"), which takes precedence.
RecommendedQuality maps the class to a 1-100 encode quality and floors
it whenever data saver is on.
*/
package capability
