// Package storage is the sqlite store backend. Amounts are persisted as
// decimal strings, never floats, so round trips are exact.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"monexa/internal/core"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertBatch persists the whole import set in one transaction. If any row
// fails, the transaction rolls back and no trace of the batch remains.
func (s *SQLiteStore) InsertBatch(ctx context.Context, set core.ImportSet) (core.ImportBatch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ImportBatch{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO import_batches (batch_id, source, header_count, detail_count) VALUES (?, ?, ?, ?)`,
		set.BatchID, set.SourceID, len(set.Headers), len(set.Details))
	if err != nil {
		return core.ImportBatch{}, fmt.Errorf("insert batch row: %w", err)
	}

	for _, h := range set.Headers {
		if err := h.Validate(); err != nil {
			return core.ImportBatch{}, fmt.Errorf("header row %d: %w", h.RowIndex, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expenses (batch_id, row_index, tx_datetime, exp_type, total_amount, note, source, txn_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			set.BatchID, h.RowIndex, timeOrNil(h.OccurredAt), h.Category, h.Amount.String(), h.Note, h.SourceID, h.ExternalTxnID)
		if err != nil {
			return core.ImportBatch{}, fmt.Errorf("insert expense row %d: %w", h.RowIndex, err)
		}
	}

	for _, d := range set.Details {
		if err := d.Validate(); err != nil {
			return core.ImportBatch{}, fmt.Errorf("detail row %d: %w", d.RowIndex, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_items (batch_id, row_index, linked_header_idx, item_name, quantity, amount)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			set.BatchID, d.RowIndex, d.LinkedHeaderIndex, d.ItemName, d.Quantity, d.Amount.String())
		if err != nil {
			return core.ImportBatch{}, fmt.Errorf("insert item row %d: %w", d.RowIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.ImportBatch{}, fmt.Errorf("commit tx: %w", err)
	}

	slog.InfoContext(ctx, "Batch saved to sqlite",
		"batch_id", set.BatchID,
		"source", set.SourceID,
		"expenses", len(set.Headers),
		"items", len(set.Details))

	return core.ImportBatch{
		BatchID:             set.BatchID,
		SourceID:            set.SourceID,
		ImportedHeaderCount: len(set.Headers),
		ImportedDetailCount: len(set.Details),
	}, nil
}

// DeleteBatch removes exactly the batch's rows. A batch id that was never
// committed, or was already cancelled, fails with core.ErrUnknownBatch
// without touching anything.
func (s *SQLiteStore) DeleteBatch(ctx context.Context, batchID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	items, err := tx.ExecContext(ctx, `DELETE FROM expense_items WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	expenses, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}
	batches, err := tx.ExecContext(ctx, `DELETE FROM import_batches WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete batch row: %w", err)
	}

	batchRows, err := batches.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if batchRows == 0 {
		// Rollback via defer; nothing was deleted.
		return 0, fmt.Errorf("%w: %s", core.ErrUnknownBatch, batchID)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	ni, _ := items.RowsAffected()
	ne, _ := expenses.RowsAffected()
	deleted := int(ni + ne)

	slog.InfoContext(ctx, "Batch deleted from sqlite",
		"batch_id", batchID,
		"deleted", deleted)
	return deleted, nil
}

// RecentHeaders returns the newest stored transactions for the duplicate
// matcher, most recent transaction date first.
func (s *SQLiteStore) RecentHeaders(ctx context.Context, limit int) ([]core.StoredTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tx_datetime, total_amount, note, source, txn_id
		 FROM expenses
		 ORDER BY tx_datetime DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent expenses: %w", err)
	}
	defer rows.Close()

	var out []core.StoredTransaction
	for rows.Next() {
		var (
			id     int64
			txTime sql.NullString
			amount string
			st     core.StoredTransaction
			txnID  sql.NullString
		)
		if err := rows.Scan(&id, &txTime, &amount, &st.Note, &st.SourceID, &txnID); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		st.ID = fmt.Sprintf("expense:%d", id)
		if txTime.Valid {
			if t, err := time.Parse(time.RFC3339, txTime.String); err == nil {
				st.OccurredAt = &t
			}
		}
		st.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("bad amount for expense %d: %w", id, err)
		}
		if txnID.Valid {
			v := txnID.String
			st.ExternalTxnID = &v
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) MarkBatchSynced(ctx context.Context, batchID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE import_batches SET synced = 1 WHERE batch_id = ?`, batchID)
	if err != nil {
		return fmt.Errorf("mark batch synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrUnknownBatch, batchID)
	}
	return nil
}

// PendingBatches lists batch ids not yet marked synced, oldest first.
// The import worker uses this to recover batches whose events were lost.
func (s *SQLiteStore) PendingBatches(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id FROM import_batches WHERE synced = 0 ORDER BY created_at, batch_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending batches: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan batch id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending batches: %w", err)
	}
	return out, nil
}

// BatchSynced reports the synced flag for a batch.
func (s *SQLiteStore) BatchSynced(ctx context.Context, batchID string) (bool, error) {
	var synced bool
	err := s.db.QueryRowContext(ctx, `SELECT synced FROM import_batches WHERE batch_id = ?`, batchID).Scan(&synced)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", core.ErrUnknownBatch, batchID)
	}
	if err != nil {
		return false, fmt.Errorf("query batch: %w", err)
	}
	return synced, nil
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
