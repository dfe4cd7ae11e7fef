package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"monexa/internal/core"
	"monexa/internal/log"
	"monexa/internal/middleware/trace"
)

// errorBody is the uniform 4xx/5xx payload; clients surface Detail verbatim.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		parseErr    *core.ParseError
		unlinkedErr *core.UnlinkedDetailError
	)
	status := http.StatusInternalServerError
	op := ""
	switch {
	case errors.Is(err, core.ErrUnsupportedSource):
		status = http.StatusBadRequest
	case errors.As(err, &parseErr):
		status = http.StatusBadRequest
		op = log.OpParse
	case errors.As(err, &unlinkedErr):
		status = http.StatusUnprocessableEntity
		op = log.OpLink
	case errors.Is(err, core.ErrUnknownBatch):
		status = http.StatusNotFound
	}

	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	attrs := []any{
		slog.String(log.FieldRequestID, trace.RequestID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.Int(log.FieldStatusCode, status),
		slog.Any(log.FieldError, err),
	}
	if op != "" {
		attrs = append(attrs, slog.String(log.FieldOperation, op))
	}
	s.logger.Log(r.Context(), level, "request failed", attrs...)
	writeJSON(w, status, errorBody{Detail: err.Error()})
}

// uploadForm is the common multipart shape of /preview_csv and /upload_csv.
type uploadForm struct {
	source string
	file   []byte
	rows   int
	strict bool
}

func readUploadForm(r *http.Request) (uploadForm, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return uploadForm{}, &core.ParseError{Reason: "invalid multipart body", Err: err}
	}
	form := uploadForm{
		source: strings.TrimSpace(r.FormValue("source")),
		strict: r.FormValue("strict_details") == "true",
	}
	if v := strings.TrimSpace(r.FormValue("rows")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return uploadForm{}, &core.ParseError{Reason: "rows must be an integer", Err: err}
		}
		form.rows = n
	}

	f, _, err := r.FormFile("file")
	if err != nil {
		return uploadForm{}, &core.ParseError{Reason: "missing file field", Err: err}
	}
	defer f.Close()
	form.file, err = io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return uploadForm{}, &core.ParseError{Reason: "reading upload", Err: err}
	}
	return form, nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	form, err := readUploadForm(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	key := previewKey(form.source, form.file, form.rows)
	if cached, ok := s.previewCache.Get(key); ok {
		s.logger.DebugContext(r.Context(), "preview cache hit",
			slog.String(log.FieldOperation, log.OpPreview),
			slog.String(log.FieldSource, form.source))
		writeJSON(w, http.StatusOK, cached)
		return
	}

	result, err := s.ingestor.Preview(r.Context(), form.source, form.file, form.rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.previewCache.Set(key, result, previewCacheTTL)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDedupePreview(w http.ResponseWriter, r *http.Request) {
	var headers []core.TransactionHeader
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&headers); err != nil {
		s.writeError(w, r, &core.ParseError{Reason: "body must be a JSON array of headers", Err: err})
		return
	}

	candidates, err := s.ingestor.Dedupe(r.Context(), headers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.DebugContext(r.Context(), "dedupe preview served",
		slog.String(log.FieldOperation, log.OpDedupe),
		slog.Int("candidates", len(candidates)))
	writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	form, err := readUploadForm(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	batch, err := s.ingestor.Commit(r.Context(), form.source, form.file, form.strict)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "batch committed",
		slog.String(log.FieldOperation, log.OpCommit),
		slog.String(log.FieldBatchID, batch.BatchID),
		slog.String(log.FieldSource, batch.SourceID),
		slog.Int(log.FieldHeaderCount, batch.ImportedHeaderCount),
		slog.Int(log.FieldDetailCount, batch.ImportedDetailCount))
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batchID")
	if batchID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "missing batch id"})
		return
	}

	result, err := s.ingestor.Cancel(r.Context(), batchID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "batch cancelled",
		slog.String(log.FieldOperation, log.OpCancel),
		slog.String(log.FieldBatchID, result.BatchID),
		slog.Int(log.FieldDeletedCount, result.DeletedCount))
	writeJSON(w, http.StatusOK, result)
}
