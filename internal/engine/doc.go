// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

/*
Package engine wires the cache store, preload scheduler, resource
loader, analytics collector and capability probe into one owned
instance.

New builds every component from configuration: it opens the persistent
backend when enabled, rehydrates unexpired entries on warm start,
starts the cache janitor, and installs the default HTTP fetch
primitive. The fetch primitive GETs a URL, discards the body without
decoding, and feeds observed throughput into the network classifier;
tests and embedders replace it through Options.Attempt.

Shutdown stops the scheduler, drains pending backend commands and
closes the backend. There is no package-level engine state.
*/
package engine
