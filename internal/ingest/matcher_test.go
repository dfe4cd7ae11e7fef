package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monexa/internal/core"
)

func ts(day int) *time.Time {
	t := time.Date(2024, 1, day, 10, 30, 0, 0, time.UTC)
	return &t
}

func strptr(s string) *string { return &s }

func previewHeader(row int, day int, amount int64, txnID string) core.TransactionHeader {
	h := core.TransactionHeader{
		RowIndex: row,
		Amount:   decimal.NewFromInt(amount),
		SourceID: "bank",
	}
	if day > 0 {
		h.OccurredAt = ts(day)
	}
	if txnID != "" {
		h.ExternalTxnID = strptr(txnID)
	}
	return h
}

func stored(id string, day int, amount int64, txnID string) core.StoredTransaction {
	s := core.StoredTransaction{
		ID:       id,
		Amount:   decimal.NewFromInt(amount),
		SourceID: "bank",
	}
	if day > 0 {
		s.OccurredAt = ts(day)
	}
	if txnID != "" {
		s.ExternalTxnID = strptr(txnID)
	}
	return s
}

// An identical provider transaction id is exact no matter how different
// every other field is.
func TestMatch_ExternalTxnIDIsExact(t *testing.T) {
	headers := []core.TransactionHeader{previewHeader(0, 20, 99999, "T123")}
	history := []core.StoredTransaction{stored("row-7", 3, -150, "T123")}

	got := Match(context.Background(), headers, history)
	require.Len(t, got, 1)
	assert.Equal(t, core.MatchExact, got[0].Confidence)
	assert.Equal(t, "row-7", got[0].ExistingRecordRef)
}

func TestMatch_TupleIsExact(t *testing.T) {
	headers := []core.TransactionHeader{previewHeader(0, 5, -150, "")}
	history := []core.StoredTransaction{stored("row-1", 5, -150, "")}

	got := Match(context.Background(), headers, history)
	assert.Equal(t, core.MatchExact, got[0].Confidence)
	assert.Equal(t, "row-1", got[0].ExistingRecordRef)
}

func TestMatch_TupleNeedsSameSource(t *testing.T) {
	h := previewHeader(0, 5, -150, "")
	h.SourceID = "gpay"
	history := []core.StoredTransaction{stored("row-1", 5, -150, "")}

	got := Match(context.Background(), []core.TransactionHeader{h}, history)
	// Same day and amount but a different source is only probable.
	assert.Equal(t, core.MatchProbable, got[0].Confidence)
}

func TestMatch_ProbableWithinTolerance(t *testing.T) {
	headers := []core.TransactionHeader{
		{RowIndex: 0, OccurredAt: ts(5), Amount: decimal.RequireFromString("-150.40"), SourceID: "bank"},
	}
	history := []core.StoredTransaction{stored("row-2", 6, -150, "")}

	got := Match(context.Background(), headers, history)
	assert.Equal(t, core.MatchProbable, got[0].Confidence)
	assert.Equal(t, "row-2", got[0].ExistingRecordRef)
}

func TestMatch_None(t *testing.T) {
	headers := []core.TransactionHeader{previewHeader(0, 5, -150, "")}
	history := []core.StoredTransaction{
		stored("a", 9, -150, ""),  // amount matches, date too far
		stored("b", 5, -500, ""),  // date matches, amount too far
	}

	got := Match(context.Background(), headers, history)
	assert.Equal(t, core.MatchNone, got[0].Confidence)
	assert.Empty(t, got[0].ExistingRecordRef)
}

// Headers without a parsed date can only match by provider id.
func TestMatch_NilDates(t *testing.T) {
	headers := []core.TransactionHeader{
		previewHeader(0, 0, -150, ""),
		previewHeader(1, 0, -150, "X1"),
	}
	history := []core.StoredTransaction{stored("a", 5, -150, "X1")}

	got := Match(context.Background(), headers, history)
	assert.Equal(t, core.MatchNone, got[0].Confidence)
	assert.Equal(t, core.MatchExact, got[1].Confidence)
}

// One candidate per header, input order preserved, regardless of how the
// rows are scheduled across workers.
func TestMatch_AlignedWithInput(t *testing.T) {
	var headers []core.TransactionHeader
	for i := 0; i < 100; i++ {
		headers = append(headers, previewHeader(i, (i%27)+1, int64(i), ""))
	}
	history := []core.StoredTransaction{stored("row-9", 4, 3, "")}

	got := Match(context.Background(), headers, history)
	require.Len(t, got, len(headers))
	for i, c := range got {
		assert.Equal(t, headers[i].RowIndex, c.PreviewRowIndex)
		assert.True(t, c.Confidence.Valid())
	}
}

func TestMatch_EmptyHistory(t *testing.T) {
	headers := []core.TransactionHeader{previewHeader(0, 5, -150, "T1")}

	got := Match(context.Background(), headers, nil)
	require.Len(t, got, 1)
	assert.Equal(t, core.MatchNone, got[0].Confidence)
}
