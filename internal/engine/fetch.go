// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pixelfetch/pixelfetch/internal/capability"
	"github.com/pixelfetch/pixelfetch/internal/loader"
)

// errBodyLimit bounds how much of an error response body is drained
// before the connection is released for reuse.
const errBodyLimit = 4 << 10

// newHTTPAttempt builds the default load primitive: GET the URL, drain
// the body without decoding, and feed the observed throughput into the
// network classifier. Pixel data is never retained; the engine only
// needs the succeeded/failed signal and the transfer size.
func newHTTPAttempt(client *http.Client, est *capability.Estimator) loader.AttemptFunc {
	return func(ctx context.Context, url string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request for %s: %w", url, err)
		}

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errBodyLimit))
			return fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
		}

		n, err := io.Copy(io.Discard, resp.Body)
		if err != nil {
			return fmt.Errorf("read %s: %w", url, err)
		}

		if est != nil {
			est.RecordSample(n, time.Since(start))
		}
		return nil
	}
}
