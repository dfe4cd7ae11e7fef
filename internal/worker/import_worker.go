// Package worker consumes import events and keeps batch sync state in
// step with what downstream consumers have seen.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"monexa/internal/amqp"
	"monexa/internal/core"
	"monexa/internal/log"
)

// BatchStore is the slice of the storage surface the worker needs.
type BatchStore interface {
	MarkBatchSynced(ctx context.Context, batchID string) error
	PendingBatches(ctx context.Context, limit int) ([]string, error)
}

// ImportWorker marks committed batches as synced when their events
// arrive, and sweeps unsynced batches as a backup for lost messages.
type ImportWorker struct {
	store     BatchStore
	batchSize int
}

func NewImportWorker(store BatchStore, batchSize int) *ImportWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ImportWorker{store: store, batchSize: batchSize}
}

// HandleEvent processes one import event. Cancelled batches need no
// bookkeeping: their rows are already gone.
func (w *ImportWorker) HandleEvent(ctx context.Context, msg *amqp.ImportEventMessage) error {
	switch msg.Kind {
	case amqp.EventBatchCommitted:
		if err := w.store.MarkBatchSynced(ctx, msg.BatchID); err != nil {
			// The batch may have been cancelled between publish and
			// delivery; that is a resolved race, not a failure.
			if errors.Is(err, core.ErrUnknownBatch) {
				slog.WarnContext(ctx, "Committed batch gone before sync",
					log.FieldBatchID, msg.BatchID)
				return nil
			}
			return fmt.Errorf("mark batch synced: %w", err)
		}
		fields := log.NewFields().WithComponent(log.ComponentWorker).
			WithOperation(log.OpSync).WithBatch(msg.BatchID, msg.SourceID)
		fields[log.FieldHeaderCount] = msg.HeaderCount
		fields[log.FieldDetailCount] = msg.DetailCount
		slog.InfoContext(ctx, "Batch marked synced", fields.ToSlice()...)
		return nil

	case amqp.EventBatchCancelled:
		slog.InfoContext(ctx, "Batch cancelled upstream",
			log.FieldBatchID, msg.BatchID,
			log.FieldDeletedCount, msg.DeletedCount)
		return nil

	default:
		slog.WarnContext(ctx, "Dropping event of unknown kind", "kind", msg.Kind)
		return nil
	}
}

// ProcessPending sweeps batches whose committed events never arrived and
// marks them synced. Returns how many batches were caught up.
func (w *ImportWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.store.PendingBatches(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending batches: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending batches",
		log.FieldOperation, log.OpSync, "count", len(pending))

	done := 0
	for _, id := range pending {
		if err := w.store.MarkBatchSynced(ctx, id); err != nil {
			if errors.Is(err, core.ErrUnknownBatch) {
				continue
			}
			slog.ErrorContext(ctx, "Failed to mark pending batch",
				log.FieldBatchID, id, log.FieldError, err)
			continue
		}
		done++
	}
	return done, nil
}

// StartupCheck runs one larger pending sweep at worker start, recovering
// from downtime before new events flow.
func (w *ImportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.PendingBatches(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending batches at startup: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending batches found on startup")
		return nil
	}

	synced := 0
	for _, id := range pending {
		if err := w.store.MarkBatchSynced(ctx, id); err != nil {
			if !errors.Is(err, core.ErrUnknownBatch) {
				slog.ErrorContext(ctx, "Startup sync failed for batch",
					log.FieldBatchID, id, log.FieldError, err)
			}
			continue
		}
		synced++
	}
	slog.InfoContext(ctx, "Startup sync completed",
		log.FieldOperation, log.OpStartup,
		"total", len(pending),
		"synced", synced)
	return nil
}
