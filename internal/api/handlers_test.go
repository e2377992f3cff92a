// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/pixelfetch/pixelfetch/internal/config"
	"github.com/pixelfetch/pixelfetch/internal/engine"
)

func testRouter(t *testing.T) (http.Handler, *engine.Engine) {
	t.Helper()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.Cache.JanitorInterval = 0
	cfg.Loader.MaxRetries = 1
	cfg.Loader.InitialDelay = time.Millisecond
	cfg.Loader.BreakerEnabled = false

	e, err := engine.New(cfg, engine.Options{})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})

	return NewRouter(e, cfg), e
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("expected success response")
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data type = %T", resp.Data)
	}
	if data["status"] != "ok" {
		t.Errorf("status = %v, want ok", data["status"])
	}
}

func TestHealthCarriesRequestID(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	resp := decodeResponse(t, rec)

	if resp.Meta == nil || resp.Meta.RequestID == "" {
		t.Error("expected request ID in response meta")
	}
	if got := rec.Header().Get("X-Request-ID"); got == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestCachePutThenGet(t *testing.T) {
	router, e := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cache", CacheRequest{
		URL:       "https://cdn.example.com/hero.webp",
		SizeBytes: 2048,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !e.Store.IsCached("https://cdn.example.com/hero.webp") {
		t.Error("store should report URL cached")
	}

	rec = doJSON(t, router, http.MethodGet,
		"/api/v1/cache?url=https://cdn.example.com/hero.webp", nil)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["cached"] != true {
		t.Errorf("cached = %v, want true", data["cached"])
	}

	rec = doJSON(t, router, http.MethodGet,
		"/api/v1/cache?url=https://cdn.example.com/missing.webp", nil)
	resp = decodeResponse(t, rec)
	data = resp.Data.(map[string]interface{})
	if data["cached"] != false {
		t.Errorf("cached = %v, want false", data["cached"])
	}
}

func TestCacheGetRequiresURL(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cache", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeBadRequest)
	}
}

func TestCacheInvalidateAndClear(t *testing.T) {
	router, e := testRouter(t)

	e.Store.Cache("https://cdn.example.com/a.png")
	e.Store.Cache("https://cdn.example.com/b.png")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cache/invalidate",
		InvalidateRequest{URL: "https://cdn.example.com/a.png"})
	if rec.Code != http.StatusOK {
		t.Fatalf("invalidate status = %d", rec.Code)
	}
	if e.Store.IsCached("https://cdn.example.com/a.png") {
		t.Error("a.png should be invalidated")
	}
	if !e.Store.IsCached("https://cdn.example.com/b.png") {
		t.Error("b.png should survive the invalidation")
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/cache/clear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if e.Store.IsCached("https://cdn.example.com/b.png") {
		t.Error("b.png should be gone after clear")
	}
}

func TestCacheStatsAndURLs(t *testing.T) {
	router, e := testRouter(t)

	e.Store.Cache("https://cdn.example.com/a.png")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/cache/stats", nil)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	memory := data["memory"].(map[string]interface{})
	if memory["total_entries"].(float64) != 1 {
		t.Errorf("total_entries = %v, want 1", memory["total_entries"])
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/cache/urls", nil)
	resp = decodeResponse(t, rec)
	data = resp.Data.(map[string]interface{})
	if data["count"].(float64) != 1 {
		t.Errorf("count = %v, want 1", data["count"])
	}
}

func TestPreloadEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(make([]byte, 512))
	}))
	defer srv.Close()

	router, e := testRouter(t)

	url := srv.URL + "/product.png"
	rec := doJSON(t, router, http.MethodPost, "/api/v1/preload", PreloadRequest{
		URLs:     []string{url},
		Strategy: "immediate",
		Priority: "high",
		Wait:     true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !e.Store.IsCached(url) {
		t.Error("preloaded URL should be cached")
	}
}

func TestPreloadAsyncReturnsAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/preload", PreloadRequest{
		URLs: []string{srv.URL + "/a.png"},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["strategy"] != "immediate" {
		t.Errorf("strategy = %v, want immediate default", data["strategy"])
	}
	if data["priority"] != "medium" {
		t.Errorf("priority = %v, want medium default", data["priority"])
	}
}

func TestPreloadValidation(t *testing.T) {
	router, _ := testRouter(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"empty urls", PreloadRequest{URLs: []string{}}},
		{"bad url", PreloadRequest{URLs: []string{"not a url"}}},
		{"bad strategy", PreloadRequest{URLs: []string{"https://x.test/a.png"}, Strategy: "psychic"}},
		{"bad priority", PreloadRequest{URLs: []string{"https://x.test/a.png"}, Priority: "urgent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/preload", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			resp := decodeResponse(t, rec)
			if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
				t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeValidationFailed)
			}
		})
	}
}

func TestPreloadRejectsUnknownFields(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/preload",
		strings.NewReader(`{"urls":["https://x.test/a.png"],"bogus":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeBadRequest)
	}
}

func TestCapabilitiesSnapshot(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/capabilities", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if _, ok := data["network_class"]; !ok {
		t.Error("snapshot missing network_class")
	}
	if _, ok := data["recommended_quality"]; !ok {
		t.Error("snapshot missing recommended_quality")
	}
}

func TestNetworkReportAdjustsQuality(t *testing.T) {
	router, e := testRouter(t)

	dataSaver := true
	rec := doJSON(t, router, http.MethodPost, "/api/v1/capabilities/network",
		NetworkReportRequest{EffectiveType: "2g", DataSaver: &dataSaver})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if got := e.Capability.RecommendedQuality(); got != 40 {
		t.Errorf("RecommendedQuality = %d, want 40 for 2g with data saver", got)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/capabilities/network",
		NetworkReportRequest{EffectiveType: "5g"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown effective type", rec.Code)
	}
}

func TestAnalyticsInteractionRoundTrip(t *testing.T) {
	router, e := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/analytics/interaction",
		InteractionRequest{
			Type:     "hover",
			URL:      "https://cdn.example.com/thumb.png",
			Metadata: map[string]string{"section": "featured"},
		})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	interactions := e.Analytics.Interactions()
	if len(interactions) != 1 {
		t.Fatalf("interactions = %d, want 1", len(interactions))
	}
	if interactions[0].Type != "hover" {
		t.Errorf("type = %q, want hover", interactions[0].Type)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/analytics/interactions", nil)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["count"].(float64) != 1 {
		t.Errorf("count = %v, want 1", data["count"])
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/analytics/clear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if len(e.Analytics.Interactions()) != 0 {
		t.Error("interactions should be empty after clear")
	}
}

func TestVisibilityNotify(t *testing.T) {
	router, e := testRouter(t)

	if e.Visibility == nil {
		t.Fatal("engine should own a visibility signal by default")
	}

	url := "https://cdn.example.com/below-fold.png"
	fired := e.Visibility.Subscribe(url)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/visibility",
		VisibilityRequest{URL: url})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("visibility watch did not fire")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pixelfetch_") {
		t.Error("expected pixelfetch metrics in exposition output")
	}
}
