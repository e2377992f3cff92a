// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

/*
Package loader performs image load attempts with bounded retry,
exponential backoff, and pluggable failure recovery.

The loader owns no network code. A single AttemptFunc primitive is
injected at construction time and the package layers policy on top of
it: how many times to try, how long to wait between tries, and what to
do when every try fails.

# Retry Semantics

RetryLoad makes up to maxRetries attempts. Attempt 0 runs immediately;
every failed attempt waits initialDelay * 2^attempt before the next
pass:

	l := loader.New(fetch, loader.Config{})
	ok := l.RetryLoad(ctx, url, 3, 100*time.Millisecond)
	// attempts at t=0, t=100ms, t=300ms; false after the third failure

The wait is abandoned when the context ends, so a canceled scheduler
never holds a goroutine in backoff.

# Recovery Strategies

Resolve wraps the retry loop with one of four strategies:

  - StrategyRetry: exponential backoff, then a final error callback
  - StrategyFallback: an ordered URL chain, full retry budget per link,
    then a final error callback
  - StrategyPlaceholder: one attempt, then a final error callback so
    the caller can render a placeholder
  - StrategySilent: one attempt, no callback; only metrics record it

Resolve returns the URL that loaded, or "" when the strategy resolved
to no URL.

# Load States

Each load walks Requested -> Loading -> Loaded or Failed. Failed
re-enters Loading while retry budget remains, otherwise the load is
Exhausted and the caller receives an *ExhaustedError wrapping
ErrTransient.

# Circuit Breaker

An optional Breaker (sony/gobreaker) gates every attempt. The circuit
opens when the failure rate reaches the configured threshold with a
minimum request count, and rejections from an open circuit count as
transient failures. State transitions are logged and exported through
the metrics package.

# Thread Safety

Loader and Breaker are safe for concurrent use. AttemptFunc
implementations must be concurrency safe as the preload scheduler
dispatches loads from multiple goroutines.
*/
package loader
