// Package trace assigns a request id to every incoming HTTP request and
// logs request completion with method, path, status and duration.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"monexa/internal/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Metrics counts requests by outcome class.
type Metrics struct {
	Total     atomic.Int64
	ClientErr atomic.Int64
	ServerErr atomic.Int64
}

// Snapshot is a point-in-time read of the counters, shaped for JSON.
type Snapshot struct {
	Total        int64 `json:"total"`
	ClientErrors int64 `json:"client_errors"`
	ServerErrors int64 `json:"server_errors"`
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Total:        m.Total.Load(),
		ClientErrors: m.ClientErr.Load(),
		ServerErrors: m.ServerErr.Load(),
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware wraps next with request id propagation and completion logging.
func Middleware(logger *slog.Logger, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = NewRequestID()
			}
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			w.Header().Set("X-Request-ID", id)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r.WithContext(ctx))
			elapsed := time.Since(start)

			if metrics != nil {
				metrics.Total.Add(1)
				switch {
				case sw.status >= 500:
					metrics.ServerErr.Add(1)
				case sw.status >= 400:
					metrics.ClientErr.Add(1)
				}
			}

			level := slog.LevelInfo
			if sw.status >= 500 {
				level = slog.LevelError
			} else if sw.status >= 400 {
				level = slog.LevelWarn
			}
			logger.LogAttrs(ctx, level, "request completed",
				slog.String(log.FieldRequestID, id),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int(log.FieldStatusCode, sw.status),
				slog.Int64(log.FieldDuration, elapsed.Milliseconds()),
			)
		})
	}
}

// NewRequestID returns a random 16-hex-char identifier.
func NewRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "00000000deadbeef"
	}
	return hex.EncodeToString(b[:])
}

// RequestID extracts the request id from ctx, or "" when absent.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
