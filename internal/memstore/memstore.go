// Package memstore is the in-memory store backend: the default for local
// runs and tests. It mirrors the sqlite store's semantics, including
// all-or-nothing batches and core.ErrUnknownBatch on repeat cancellation.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"monexa/internal/core"
)

type batch struct {
	set core.ImportSet
	seq int
}

type Store struct {
	mu      sync.Mutex
	batches map[string]*batch
	nextSeq int
	nextRow int
	refs    map[string][]string // batchID -> record refs, for history
	history []historyRow
	synced  map[string]bool
}

type historyRow struct {
	ref     string
	batchID string
	header  core.TransactionHeader
}

func New() *Store {
	return &Store{
		batches: make(map[string]*batch),
		refs:    make(map[string][]string),
		synced:  make(map[string]bool),
	}
}

func (s *Store) InsertBatch(_ context.Context, set core.ImportSet) (core.ImportBatch, error) {
	for _, h := range set.Headers {
		if err := h.Validate(); err != nil {
			// Nothing stored yet; the batch is rejected whole.
			return core.ImportBatch{}, fmt.Errorf("header row %d: %w", h.RowIndex, err)
		}
	}
	for _, d := range set.Details {
		if err := d.Validate(); err != nil {
			return core.ImportBatch{}, fmt.Errorf("detail row %d: %w", d.RowIndex, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[set.BatchID]; ok {
		return core.ImportBatch{}, fmt.Errorf("batch %s already exists", set.BatchID)
	}
	s.nextSeq++
	s.batches[set.BatchID] = &batch{set: set, seq: s.nextSeq}
	for _, h := range set.Headers {
		s.nextRow++
		ref := fmt.Sprintf("mem:%d", s.nextRow)
		s.refs[set.BatchID] = append(s.refs[set.BatchID], ref)
		s.history = append(s.history, historyRow{ref: ref, batchID: set.BatchID, header: h})
	}

	return core.ImportBatch{
		BatchID:             set.BatchID,
		SourceID:            set.SourceID,
		ImportedHeaderCount: len(set.Headers),
		ImportedDetailCount: len(set.Details),
	}, nil
}

func (s *Store) DeleteBatch(_ context.Context, batchID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrUnknownBatch, batchID)
	}
	delete(s.batches, batchID)
	delete(s.refs, batchID)
	delete(s.synced, batchID)

	kept := s.history[:0]
	for _, row := range s.history {
		if row.batchID != batchID {
			kept = append(kept, row)
		}
	}
	s.history = kept

	return len(b.set.Headers) + len(b.set.Details), nil
}

func (s *Store) RecentHeaders(_ context.Context, limit int) ([]core.StoredTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := append([]historyRow(nil), s.history...)
	// Newest transaction date first; undated rows sink to the end.
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].header.OccurredAt, rows[j].header.OccurredAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]core.StoredTransaction, len(rows))
	for i, r := range rows {
		out[i] = core.StoredTransaction{
			ID:            r.ref,
			OccurredAt:    r.header.OccurredAt,
			Amount:        r.header.Amount,
			Note:          r.header.Note,
			SourceID:      r.header.SourceID,
			ExternalTxnID: r.header.ExternalTxnID,
		}
	}
	return out, nil
}

func (s *Store) MarkBatchSynced(_ context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[batchID]; !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownBatch, batchID)
	}
	s.synced[batchID] = true
	return nil
}

// PendingBatches lists batch ids not yet marked synced, oldest first.
func (s *Store) PendingBatches(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type pending struct {
		id  string
		seq int
	}
	var rows []pending
	for id, b := range s.batches {
		if !s.synced[id] {
			rows = append(rows, pending{id: id, seq: b.seq})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out, nil
}

// Synced reports whether a batch was marked synced. Test helper.
func (s *Store) Synced(batchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced[batchID]
}

func (s *Store) Close() error { return nil }
