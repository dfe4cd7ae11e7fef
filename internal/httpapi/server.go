// Package httpapi exposes the ingestion operations as a JSON API: preview,
// dedupe preview, upload and cancel. It is the server side of the wire
// contract the remote client speaks.
package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"monexa/internal/backend"
	"monexa/internal/cache"
	"monexa/internal/ingest"
	"monexa/internal/middleware/trace"
)

const (
	// maxUploadBytes bounds multipart bodies; CSV exports are small.
	maxUploadBytes = 16 << 20

	previewCacheSize = 100
	previewCacheTTL  = 5 * time.Minute
)

type Server struct {
	http.Server

	ingestor backend.Ingestor
	logger   *slog.Logger
	metrics  *trace.Metrics

	// Previews are pure functions of (source, file, rows), so identical
	// uploads can be answered from cache.
	previewCache *cache.LRU[*ingest.PreviewResult]
	cleanup      *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and the preview cache, returning a
// ready-to-run server.
func NewServer(addr string, ing backend.Ingestor, logger *slog.Logger) *Server {
	s := &Server{
		ingestor:     ing,
		logger:       logger,
		metrics:      &trace.Metrics{},
		previewCache: cache.NewLRU[*ingest.PreviewResult](previewCacheSize),
		cleanup:      cache.NewManager(),
	}
	s.cleanup.Register("preview", s.previewCache)
	s.cleanup.Start(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /metricz", s.handleMetrics)
	mux.HandleFunc("POST /preview_csv", s.handlePreview)
	mux.HandleFunc("POST /dedupe_preview", s.handleDedupePreview)
	mux.HandleFunc("POST /upload_csv", s.handleUpload)
	mux.HandleFunc("DELETE /cancel_import/{batchID}", s.handleCancel)

	s.Server = http.Server{
		Addr:    addr,
		Handler: trace.Middleware(logger, s.metrics)(mux),
	}
	return s
}

// Handler returns the routed handler, useful for tests.
func (s *Server) Handler() http.Handler { return s.Server.Handler }

// Shutdown stops the cache cleanup goroutine and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cleanup.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// previewKey identifies a preview request by source, file digest and bound.
func previewKey(source string, file []byte, maxRows int) string {
	sum := sha256.Sum256(file)
	return source + ":" + hex.EncodeToString(sum[:8]) + ":" + strconv.Itoa(maxRows)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
