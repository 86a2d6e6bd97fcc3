// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/wardbook/internal/config"
	"github.com/tomtom215/wardbook/internal/metrics"
	"github.com/tomtom215/wardbook/internal/validation"
	ws "github.com/tomtom215/wardbook/internal/websocket"
)

func TestRouter_RequestID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing generated X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want the caller's id", got)
	}
	if !strings.Contains(rec.Body.String(), `"request_id":"abc-123"`) {
		t.Errorf("metadata missing request id: %s", rec.Body.String())
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/state", nil)
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		origin string
		allow  bool
	}{
		{"http://localhost:5173", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/state", nil)
		req.Header.Set("Origin", tt.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		rec := httptest.NewRecorder()
		ts.mux.ServeHTTP(rec, req)

		got := rec.Header().Get("Access-Control-Allow-Origin")
		if tt.allow && got != tt.origin {
			t.Errorf("origin %s: Allow-Origin = %q, want it echoed", tt.origin, got)
		}
		if !tt.allow && got != "" {
			t.Errorf("origin %s: Allow-Origin = %q, want none", tt.origin, got)
		}
	}
}

func TestRouter_RateLimit(t *testing.T) {
	ts := newTestServer(t)
	before := testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("session"))

	var last int
	for i := 0; i <= RateLimitSession.Requests; i++ {
		last = ts.do(t, http.MethodGet, "/api/v1/session", nil).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after %d requests = %d, want 429", RateLimitSession.Requests+1, last)
	}
	if got := testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("session")) - before; got < 1 {
		t.Errorf("rate limit hits delta = %v, want >= 1", got)
	}
}

func TestRouter_MetricsUseRoutePattern(t *testing.T) {
	ts := newTestServer(t)
	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodDelete, "/api/v1/records/{id}", "404")
	before := testutil.ToFloat64(counter)

	ts.do(t, http.MethodDelete, "/api/v1/records/unknown-1", nil)
	ts.do(t, http.MethodDelete, "/api/v1/records/unknown-2", nil)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("requests for route pattern = %v, want 2", got)
	}

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "wardbook_api_requests_total") {
		t.Errorf("/metrics = %d, missing api request counter", rec.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, http.MethodGet, "/api/v1/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if rec := ts.do(t, http.MethodPatch, "/api/v1/state", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH status = %d, want 405", rec.Code)
	}
}

func TestWebSocket_OriginAndStatus(t *testing.T) {
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()

	state := &fakeState{}
	h := NewHandler(HandlerDeps{
		State:       state,
		Engine:      &fakeEngine{},
		Session:     newTestServer(t).session,
		Normalizer:  validation.NewNormalizer(),
		Hub:         hub,
		CORSOrigins: []string{"http://localhost:5173"},
	})
	srv := httptest.NewServer(NewRouter(h, &config.ServerConfig{RateLimitRequests: 1000, RateLimitWindow: time.Minute}).SetupChi())
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"

	header := http.Header{"Origin": []string{"https://evil.example"}}
	if conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		conn.Close()
		t.Fatal("dial from unauthorized origin succeeded")
	} else if resp != nil {
		resp.Body.Close()
	}

	header = http.Header{"Origin": []string{"http://localhost:5173"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg ws.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != ws.MessageTypeSyncStatus {
		t.Errorf("first message type = %q, want sync_status", msg.Type)
	}
}
