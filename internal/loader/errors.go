// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package loader

import (
	"errors"
	"fmt"
)

// ErrTransient marks a single failed fetch-and-decode attempt.
// Attempt primitives may wrap it; the loader treats every attempt error
// as transient and retryable regardless.
var ErrTransient = errors.New("transient load failure")

// ExhaustedError is the terminal failure after all retry attempts or all
// fallback URLs have failed. It is surfaced through OnFinalError unless
// the strategy is Silent.
type ExhaustedError struct {
	// URL is the primary URL the resolution started from.
	URL string

	// Attempts is the total number of load attempts made.
	Attempts int

	// Cause is the error from the last failed attempt.
	Cause error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("load of %s exhausted after %d attempts: %v", e.URL, e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Cause
}
