// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

// Package middleware provides HTTP middleware for the API surface:
// request ID propagation, structured access logging, and Prometheus
// request instrumentation.
//
// All middleware uses the standard func(http.Handler) http.Handler
// shape so it composes with chi's Use().
package middleware
