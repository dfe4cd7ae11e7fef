package trace

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewarePropagatesRequestID(t *testing.T) {
	var seen string
	handler := Middleware(slog.Default(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "abc123" {
		t.Errorf("RequestID in handler = %q, want abc123", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("response header = %q, want abc123", got)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	metrics := &Metrics{}
	handler := Middleware(slog.Default(), metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	for _, path := range []string{"/", "/missing", "/broken"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	snap := metrics.Snapshot()
	if snap.Total != 3 || snap.ClientErrors != 1 || snap.ServerErrors != 1 {
		t.Errorf("snapshot = %+v, want total 3, client 1, server 1", snap)
	}
}

func TestRequestIDAbsent(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("RequestID on bare context = %q, want empty", got)
	}
}
