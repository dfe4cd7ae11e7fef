package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monexa/internal/core"
)

func TestPreviewCanonicalShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/preview_csv", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "gpay", r.FormValue("source"))
		assert.Equal(t, "25", r.FormValue("rows"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"source": "gpay",
			"headers": [{"row_index": 0, "amount": "-150", "note": "Coffee", "source_id": "gpay", "occurred_at": null, "external_txn_id": null, "category": "coffee"}],
			"details": [],
			"total_rows": 1,
			"parse_failures": 0
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	res, err := c.Preview(context.Background(), "gpay", []byte("date,amount\n"), 25)
	require.NoError(t, err)
	assert.Equal(t, "gpay", res.SourceID)
	require.Len(t, res.Headers, 1)
	assert.Equal(t, "Coffee", res.Headers[0].Note)
	assert.True(t, res.Headers[0].Amount.Equal(decimal.NewFromInt(-150)))
}

func TestPreviewLegacyShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"parsed": [
			{"date": "2024-01-01", "total_amount": -150, "Description": "Coffee", "exp_type": "coffee", "TxnID": "T123"},
			{"date": "garbage", "total_amount": 50000, "Description": "Salary", "exp_type": "misc", "TxnID": ""}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	res, err := c.Preview(context.Background(), "generic", []byte("x"), 0)
	require.NoError(t, err)
	require.Len(t, res.Headers, 2)

	first := res.Headers[0]
	assert.Equal(t, 0, first.RowIndex)
	require.NotNil(t, first.OccurredAt)
	assert.Equal(t, "2024-01-01", first.OccurredAt.Format("2006-01-02"))
	assert.Equal(t, "Coffee", first.Note)
	require.NotNil(t, first.ExternalTxnID)
	assert.Equal(t, "T123", *first.ExternalTxnID)
	assert.Equal(t, "generic", first.SourceID)

	second := res.Headers[1]
	assert.Nil(t, second.OccurredAt)
	assert.Nil(t, second.ExternalTxnID)
	assert.Equal(t, 2, res.TotalRows)
}

func TestPreviewServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": "unsupported source: nope"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.Preview(context.Background(), "nope", []byte("x"), 0)
	var reqErr *core.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
	assert.Equal(t, "unsupported source: nope", reqErr.Detail)
}

func TestDedupeAlignmentEnforced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"preview_row_index": 0, "match_confidence": "exact"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	headers := []core.TransactionHeader{{RowIndex: 0}, {RowIndex: 1}}
	_, err := c.Dedupe(context.Background(), headers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 candidates for 2 headers")
}

func TestCommitModernShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "true", r.FormValue("strict_details"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"batch_id": "b-42", "imported_expenses": 3, "imported_items": 2}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	batch, err := c.Commit(context.Background(), "amazon", []byte("x"), true)
	require.NoError(t, err)
	assert.Equal(t, "b-42", batch.BatchID)
	assert.Equal(t, 3, batch.ImportedHeaderCount)
	assert.Equal(t, 2, batch.ImportedDetailCount)
	assert.Equal(t, "amazon", batch.SourceID)
}

func TestCommitLegacyImportedField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"batch_id": "b-7", "imported": 5}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	batch, err := c.Commit(context.Background(), "generic", []byte("x"), false)
	require.NoError(t, err)
	assert.Equal(t, "b-7", batch.BatchID)
	assert.Equal(t, 5, batch.ImportedHeaderCount)
	assert.Equal(t, 0, batch.ImportedDetailCount)
}

func TestCommitTimeoutIsOutcomeUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, 50*time.Millisecond)
	_, err := c.Commit(context.Background(), "generic", []byte("x"), false)
	require.ErrorIs(t, err, core.ErrTimeout)
}

func TestCancelMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "unknown batch id"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.Cancel(context.Background(), "b1")
	require.ErrorIs(t, err, core.ErrUnknownBatch)
}

func TestCancelSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cancel_import/b-9", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(core.CancelResult{BatchID: "b-9", DeletedCount: 4}))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	res, err := c.Cancel(context.Background(), "b-9")
	require.NoError(t, err)
	assert.Equal(t, 4, res.DeletedCount)
	assert.Equal(t, "b-9", res.BatchID)
}

func TestServerErrorWithoutDetailBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.Dedupe(context.Background(), nil)
	var reqErr *core.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "upstream exploded", reqErr.Detail)

	if errors.Is(err, core.ErrUnknownBatch) {
		t.Fatal("non-404 must not map to unknown batch")
	}
}
