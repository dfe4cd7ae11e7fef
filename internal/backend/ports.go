// Package backend declares the ports the workflow runs against. The same
// Ingestor contract is satisfied by the local engine (embedded store) and
// by the HTTP client for the deployed ingest service, so a session never
// knows which side of the wire it is on.
package backend

import (
	"context"

	"monexa/internal/core"
	"monexa/internal/ingest"
)

type (
	// Ingestor is the four-operation surface of the ingestion workflow.
	Ingestor interface {
		// Preview parses without committing; pure, repeatable, bounded
		// by maxRows.
		Preview(ctx context.Context, source string, file []byte, maxRows int) (*ingest.PreviewResult, error)

		// Dedupe flags likely duplicates of the given preview headers
		// against the historical store, one candidate per header in
		// input order.
		Dedupe(ctx context.Context, headers []core.TransactionHeader) ([]core.DedupeCandidate, error)

		// Commit durably persists the parsed file under a fresh batch
		// id, all or nothing. The returned batch id is the only handle
		// for a later Cancel.
		Commit(ctx context.Context, source string, file []byte, strict bool) (core.ImportBatch, error)

		// Cancel deletes exactly the rows committed under batchID.
		// Cancelling an unknown or already-cancelled batch fails with
		// core.ErrUnknownBatch; it is never a silent no-op.
		Cancel(ctx context.Context, batchID string) (core.CancelResult, error)
	}

	// Store is the durable substrate behind the local engine.
	Store interface {
		// InsertBatch persists a whole import set transactionally. A
		// partially visible batch must never be observable afterwards.
		InsertBatch(ctx context.Context, set core.ImportSet) (core.ImportBatch, error)

		// DeleteBatch removes exactly the rows stored under batchID and
		// returns how many went away. Unknown id -> core.ErrUnknownBatch.
		DeleteBatch(ctx context.Context, batchID string) (int, error)

		// RecentHeaders returns the newest stored transactions for the
		// duplicate matcher.
		RecentHeaders(ctx context.Context, limit int) ([]core.StoredTransaction, error)

		// MarkBatchSynced records that downstream consumers have seen
		// the batch. Unknown id -> core.ErrUnknownBatch.
		MarkBatchSynced(ctx context.Context, batchID string) error

		Close() error
	}
)
