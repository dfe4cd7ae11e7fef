package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monexa/internal/core"
)

func testSet(batchID string, amounts ...int64) core.ImportSet {
	set := core.ImportSet{BatchID: batchID, SourceID: "generic"}
	for i, a := range amounts {
		occurred := time.Date(2024, 3, i+1, 0, 0, 0, 0, time.UTC)
		set.Headers = append(set.Headers, core.TransactionHeader{
			RowIndex:   i,
			OccurredAt: &occurred,
			Amount:     decimal.NewFromInt(a),
			SourceID:   "generic",
		})
	}
	return set
}

func TestInsertDeleteRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	batch, err := s.InsertBatch(ctx, testSet("b1", -150, 50000))
	require.NoError(t, err)
	assert.Equal(t, 2, batch.ImportedHeaderCount)

	deleted, err := s.DeleteBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = s.DeleteBatch(ctx, "b1")
	assert.ErrorIs(t, err, core.ErrUnknownBatch)
}

func TestDeleteUnknownBatch(t *testing.T) {
	s := New()
	_, err := s.DeleteBatch(context.Background(), "b1")
	assert.ErrorIs(t, err, core.ErrUnknownBatch)
}

func TestRecentHeadersNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.InsertBatch(ctx, testSet("b1", 1, 2, 3))
	require.NoError(t, err)

	history, err := s.RecentHeaders(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "3", history[0].Amount.String())
	assert.Equal(t, "2", history[1].Amount.String())
}

func TestInsertRejectsInvalidRowsWhole(t *testing.T) {
	s := New()
	ctx := context.Background()

	set := testSet("b1", 1)
	set.Headers = append(set.Headers, core.TransactionHeader{RowIndex: -1, SourceID: "generic"})

	_, err := s.InsertBatch(ctx, set)
	require.Error(t, err)

	history, err := s.RecentHeaders(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMarkBatchSynced(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.InsertBatch(ctx, testSet("b1", 1))
	require.NoError(t, err)

	require.NoError(t, s.MarkBatchSynced(ctx, "b1"))
	assert.True(t, s.Synced("b1"))

	assert.ErrorIs(t, s.MarkBatchSynced(ctx, "nope"), core.ErrUnknownBatch)
}
