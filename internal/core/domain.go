package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MatchExact    MatchConfidence = "exact"
	MatchProbable MatchConfidence = "probable"
	MatchNone     MatchConfidence = "none"
)

type (
	// MatchConfidence classifies how strongly a preview row resembles a
	// stored transaction.
	MatchConfidence string

	// TransactionHeader is one financial event parsed from a source file.
	// Amount sign convention: positive = inflow, negative = outflow.
	TransactionHeader struct {
		RowIndex      int             `json:"row_index"`
		OccurredAt    *time.Time      `json:"occurred_at"` // nil = date unparseable, flagged for review
		Category      string          `json:"category"`
		Amount        decimal.Decimal `json:"amount"`
		Note          string          `json:"note"`
		SourceID      string          `json:"source_id"`
		ExternalTxnID *string         `json:"external_txn_id"`
	}

	// DetailLine is an itemized sub-entry of a header, e.g. a single
	// receipt line item. LinkedHeaderIndex refers to a
	// TransactionHeader.RowIndex within the same preview; nil means the
	// line is an orphan.
	DetailLine struct {
		RowIndex          int             `json:"row_index"`
		ItemName          string          `json:"item_name"`
		Quantity          int             `json:"quantity"`
		Amount            decimal.Decimal `json:"amount"`
		LinkedHeaderIndex *int            `json:"linked_header_index"`

		// FilePos is the line's ordinal in the original file, shared
		// with headers. The linker needs it to find the nearest
		// preceding header; it is not part of the wire shape.
		FilePos int `json:"-"`
	}

	// ImportBatch is the unit of commit and cancellation. It exists only
	// after a successful commit and its BatchID is the sole handle for
	// cancelling that commit later.
	ImportBatch struct {
		BatchID             string `json:"batch_id"`
		SourceID            string `json:"source_id"`
		ImportedHeaderCount int    `json:"imported_expenses"`
		ImportedDetailCount int    `json:"imported_items"`
	}

	// DedupeCandidate is the result of matching one preview header
	// against history. ExistingRecordRef is empty iff Confidence is
	// MatchNone.
	DedupeCandidate struct {
		PreviewRowIndex   int             `json:"preview_row_index"`
		Confidence        MatchConfidence `json:"match_confidence"`
		ExistingRecordRef string          `json:"existing_record_ref,omitempty"`
	}

	// StoredTransaction is the matcher's view of one already-committed
	// record.
	StoredTransaction struct {
		ID            string          `json:"id"`
		OccurredAt    *time.Time      `json:"occurred_at"`
		Amount        decimal.Decimal `json:"amount"`
		Note          string          `json:"note"`
		SourceID      string          `json:"source_id"`
		ExternalTxnID *string         `json:"external_txn_id"`
	}

	// CancelResult reports a completed cancellation.
	CancelResult struct {
		BatchID      string `json:"batch_id"`
		DeletedCount int    `json:"deleted"`
	}

	// ImportSet is everything a commit persists under one batch id.
	ImportSet struct {
		BatchID  string
		SourceID string
		Headers  []TransactionHeader
		Details  []DetailLine
	}
)

func (c MatchConfidence) Valid() bool {
	switch c {
	case MatchExact, MatchProbable, MatchNone:
		return true
	}
	return false
}

func (h TransactionHeader) Validate() error {
	if strings.TrimSpace(h.SourceID) == "" {
		return ErrEmptySource
	}
	if h.RowIndex < 0 {
		return ErrInvalidRowIndex
	}
	return nil
}

func (d DetailLine) Validate() error {
	if d.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if d.RowIndex < 0 {
		return ErrInvalidRowIndex
	}
	return nil
}

// Linked reports whether the detail line resolved to a parent header.
func (d DetailLine) Linked() bool {
	return d.LinkedHeaderIndex != nil
}

var (
	ErrEmptySource      = errors.New("empty source id")
	ErrInvalidRowIndex  = errors.New("negative row index")
	ErrNegativeQuantity = errors.New("negative quantity")
)
