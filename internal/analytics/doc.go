// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

/*
Package analytics records load timing and user interaction events.

The Collector keeps a URL-keyed map of in-progress start timestamps.
TrackLoad and TrackError finalize a LoadMetric with elapsed time from
the matching start, or zero when no start was recorded. Interactions
carry a generated UUID and optional free-form metadata.

Overhead is bounded two ways: a sample rate in [0.0, 1.0] skips
tracking calls probabilistically, and retention is capped at MaxMetrics
entries with the oldest dropped first. A disabled collector is a hard
no-op on every call.

The Collector implements the loader package's Tracker interface, so it
can be wired directly into loader.Config.
*/
package analytics
