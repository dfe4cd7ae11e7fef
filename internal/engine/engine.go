// Package engine composes the source adapters, the preview pipeline, and
// a durable store into the local implementation of the ingestion
// operations. The ingest HTTP service serves this engine; the remote
// client implements the same contract over the wire.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"monexa/internal/backend"
	"monexa/internal/core"
	"monexa/internal/ingest"
	"monexa/internal/sources"
)

// historyLimit bounds how much history the duplicate matcher scans per
// call, newest first. Mirrors the deployed service.
const historyLimit = 500

var _ backend.Ingestor = (*Engine)(nil)

type Engine struct {
	registry *sources.Registry
	store    backend.Store
}

func New(store backend.Store) *Engine {
	return &Engine{
		registry: sources.Default(),
		store:    store,
	}
}

// Preview parses without committing. Safe to call repeatedly on the same
// input; never touches the store.
func (e *Engine) Preview(ctx context.Context, source string, file []byte, maxRows int) (*ingest.PreviewResult, error) {
	res, err := ingest.Preview(e.registry, source, file, maxRows)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Previewed file",
		"source", source,
		"headers", len(res.Headers),
		"details", len(res.Details),
		"parse_failures", res.ParseFailures)
	return res, nil
}

// Dedupe matches preview headers against the newest stored transactions.
// Rows of the same preview are not matched against each other.
func (e *Engine) Dedupe(ctx context.Context, headers []core.TransactionHeader) ([]core.DedupeCandidate, error) {
	history, err := e.store.RecentHeaders(ctx, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return ingest.Match(ctx, headers, history), nil
}

// Commit re-parses the file, strict-links it when asked, and persists
// every resulting row under a freshly minted batch id. The store makes the
// insert all-or-nothing; a failed commit leaves nothing behind.
func (e *Engine) Commit(ctx context.Context, source string, file []byte, strict bool) (core.ImportBatch, error) {
	res, err := ingest.Preview(e.registry, source, file, 0)
	if err != nil {
		return core.ImportBatch{}, err
	}
	details := res.Details
	if strict {
		details, err = ingest.Link(res.Headers, res.Details, true)
		if err != nil {
			return core.ImportBatch{}, err
		}
	}

	set := core.ImportSet{
		BatchID:  uuid.NewString(),
		SourceID: source,
		Headers:  res.Headers,
		Details:  details,
	}
	batch, err := e.store.InsertBatch(ctx, set)
	if err != nil {
		return core.ImportBatch{}, fmt.Errorf("persist batch: %w", err)
	}

	slog.InfoContext(ctx, "Committed import batch",
		"batch_id", batch.BatchID,
		"source", source,
		"imported_expenses", batch.ImportedHeaderCount,
		"imported_items", batch.ImportedDetailCount,
		"parse_failures", res.ParseFailures)
	return batch, nil
}

// Cancel reverses a prior commit. Exactly the batch's rows are deleted;
// unknown ids surface core.ErrUnknownBatch so a no-op can never be
// mistaken for a real cancellation.
func (e *Engine) Cancel(ctx context.Context, batchID string) (core.CancelResult, error) {
	deleted, err := e.store.DeleteBatch(ctx, batchID)
	if err != nil {
		return core.CancelResult{}, err
	}

	slog.InfoContext(ctx, "Cancelled import batch",
		"batch_id", batchID,
		"deleted", deleted)
	return core.CancelResult{BatchID: batchID, DeletedCount: deleted}, nil
}
