package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"monexa/internal/amqp"
	"monexa/internal/backend"
	"monexa/internal/core"
	"monexa/internal/ingest"
	"monexa/internal/log"
)

// EventPublisher announces committed and cancelled batches downstream.
// Publishing failures never fail the operation itself.
type EventPublisher interface {
	PublishImportEvent(ctx context.Context, msg *amqp.ImportEventMessage) error
}

// Session is one import workflow instance. Sessions share nothing with
// each other; each holds its own preview, candidates and at most one
// outstanding batch. At most one operation runs at a time per session.
type Session struct {
	ingestor backend.Ingestor
	events   EventPublisher
	logger   *slog.Logger

	mu       sync.Mutex
	inflight bool
	state    State

	source     string
	file       []byte
	preview    *ingest.PreviewResult
	candidates []core.DedupeCandidate
	batch      *core.ImportBatch
	lastErr    error
}

func NewSession(ingestor backend.Ingestor, events EventPublisher, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ingestor: ingestor,
		events:   events,
		logger:   logger,
		state:    StateIdle,
	}
}

// begin transitions into an operation's transient state and claims the
// single in-flight slot.
func (s *Session) begin(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight {
		return core.ErrOperationInFlight
	}
	next, err := Next(s.state, event)
	if err != nil {
		return err
	}
	s.state = next
	s.inflight = true
	return nil
}

// finish applies the operation's outcome event and releases the slot.
// mutate runs under the lock so observers never see a half-updated
// session.
func (s *Session) finish(event Event, opErr error, mutate func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight = false
	if opErr != nil {
		s.state, _ = Next(s.state, EventFail)
		s.lastErr = opErr
		return
	}
	s.state, _ = Next(s.state, event)
	s.lastErr = nil
	if mutate != nil {
		mutate()
	}
}

// Preview parses the file without committing and matches the result
// against history. On success the session holds the preview and its
// dedupe candidates; on failure any partial preview state is cleared and
// the error is preserved for display.
func (s *Session) Preview(ctx context.Context, source string, file []byte, maxRows int) (*ingest.PreviewResult, error) {
	if source == "" || len(file) == 0 {
		return nil, fmt.Errorf("preview needs a source and a file: %w", core.ErrEmptySource)
	}
	if err := s.begin(EventPreviewStart); err != nil {
		return nil, err
	}

	res, err := s.ingestor.Preview(ctx, source, file, maxRows)
	var candidates []core.DedupeCandidate
	if err == nil {
		candidates, err = s.ingestor.Dedupe(ctx, res.Headers)
	}

	s.finish(EventPreviewDone, err, func() {
		s.source = source
		s.file = file
		s.preview = res
		s.candidates = candidates
	})
	if err != nil {
		s.clearPreview()
		fields := log.NewFields().WithOperation(log.OpPreview).WithError(err)
		fields[log.FieldSource] = source
		s.logger.ErrorContext(ctx, "preview failed", fields.ToSlice()...)
		return nil, err
	}

	s.logger.InfoContext(ctx, "preview ready",
		slog.String(log.FieldSource, source),
		slog.Int(log.FieldHeaderCount, len(res.Headers)),
		slog.Int(log.FieldDetailCount, len(res.Details)),
		slog.Int(log.FieldParseFailures, res.ParseFailures),
		slog.Int(log.FieldTotalRows, res.TotalRows))
	return res, nil
}

// Commit persists the previewed file under a fresh batch id. A timeout
// leaves the outcome unknown server-side, so the session moves to errored
// and never retries on its own.
func (s *Session) Commit(ctx context.Context, strict bool) (core.ImportBatch, error) {
	if err := s.begin(EventCommitStart); err != nil {
		return core.ImportBatch{}, err
	}

	source, file := s.snapshot()
	batch, err := s.ingestor.Commit(ctx, source, file, strict)
	s.finish(EventCommitDone, err, func() {
		s.batch = &batch
	})
	if err != nil {
		fields := log.NewFields().WithOperation(log.OpCommit).WithError(err)
		fields[log.FieldSource] = source
		s.logger.ErrorContext(ctx, "commit failed", fields.ToSlice()...)
		return core.ImportBatch{}, err
	}

	s.publish(ctx, amqp.NewBatchCommittedMessage(batch))
	s.logger.InfoContext(ctx, "batch imported",
		slog.String(log.FieldBatchID, batch.BatchID),
		slog.Int(log.FieldHeaderCount, batch.ImportedHeaderCount),
		slog.Int(log.FieldDetailCount, batch.ImportedDetailCount))
	return batch, nil
}

// Cancel reverses the outstanding batch. It is never implicit: only this
// call deletes committed rows, and only for the batch this session
// committed. Success returns the session to idle with all state cleared.
func (s *Session) Cancel(ctx context.Context) (core.CancelResult, error) {
	s.mu.Lock()
	batch := s.batch
	s.mu.Unlock()
	if batch == nil {
		return core.CancelResult{}, fmt.Errorf("no outstanding batch: %w", core.ErrUnknownBatch)
	}
	if err := s.begin(EventCancelStart); err != nil {
		return core.CancelResult{}, err
	}

	result, err := s.ingestor.Cancel(ctx, batch.BatchID)
	s.finish(EventCancelDone, err, func() {
		s.reset()
	})
	if err != nil {
		fields := log.NewFields().WithOperation(log.OpCancel).WithError(err).WithBatch(batch.BatchID, "")
		s.logger.ErrorContext(ctx, "cancel failed", fields.ToSlice()...)
		return core.CancelResult{}, err
	}

	s.publish(ctx, amqp.NewBatchCancelledMessage(result))
	s.logger.InfoContext(ctx, "batch cancelled",
		slog.String(log.FieldBatchID, result.BatchID),
		slog.Int(log.FieldDeletedCount, result.DeletedCount))
	return result, nil
}

// Reset returns the session to idle from any state, dropping preview,
// batch reference and error alike. Allowed even while errored; not
// allowed while an operation is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight {
		return core.ErrOperationInFlight
	}
	s.state, _ = Next(s.state, EventReset)
	s.reset()
	s.lastErr = nil
	return nil
}

func (s *Session) reset() {
	s.source = ""
	s.file = nil
	s.preview = nil
	s.candidates = nil
	s.batch = nil
}

func (s *Session) clearPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview = nil
	s.candidates = nil
}

func (s *Session) snapshot() (string, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source, s.file
}

func (s *Session) publish(ctx context.Context, msg *amqp.ImportEventMessage) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishImportEvent(ctx, msg); err != nil {
		// The batch change is already durable; losing the event only
		// delays downstream sync.
		fields := log.NewFields().WithError(err).WithBatch(msg.BatchID, msg.SourceID)
		fields["kind"] = msg.Kind
		s.logger.WarnContext(ctx, "import event not published", fields.ToSlice()...)
	}
}

// State reports the session's current workflow state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentPreview returns the held preview and its dedupe candidates.
func (s *Session) CurrentPreview() (*ingest.PreviewResult, []core.DedupeCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview, s.candidates
}

// OutstandingBatch returns the batch available for cancellation, if any.
func (s *Session) OutstandingBatch() *core.ImportBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch
}

// Err returns the preserved error after a failed operation.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
