package client

import (
	"time"

	"github.com/shopspring/decimal"

	"monexa/internal/core"
	"monexa/internal/ingest"
)

// previewEnvelope accepts both response shapes of /preview_csv: the
// canonical headers/details form and the legacy flat "parsed" list that
// older deployments still emit. Whichever variant arrives is normalized
// into the canonical types before any caller sees it.
type previewEnvelope struct {
	Source        string                   `json:"source"`
	Headers       []core.TransactionHeader `json:"headers"`
	Details       []core.DetailLine        `json:"details"`
	TotalRows     int                      `json:"total_rows"`
	ParseFailures int                      `json:"parse_failures"`

	Parsed []legacyRow `json:"parsed"`
}

// legacyRow is one entry of the old flat preview shape.
type legacyRow struct {
	Date        string          `json:"date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Description string          `json:"Description"`
	ExpType     string          `json:"exp_type"`
	TxnID       string          `json:"TxnID"`
}

var legacyDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (e *previewEnvelope) normalize(source string) *ingest.PreviewResult {
	res := &ingest.PreviewResult{
		SourceID:      e.Source,
		Headers:       e.Headers,
		Details:       e.Details,
		TotalRows:     e.TotalRows,
		ParseFailures: e.ParseFailures,
	}
	if res.SourceID == "" {
		res.SourceID = source
	}
	if res.Headers != nil || e.Parsed == nil {
		return res
	}

	res.Headers = make([]core.TransactionHeader, len(e.Parsed))
	for i, row := range e.Parsed {
		res.Headers[i] = core.TransactionHeader{
			RowIndex:      i,
			OccurredAt:    parseLegacyDate(row.Date),
			Category:      row.ExpType,
			Amount:        row.TotalAmount,
			Note:          row.Description,
			SourceID:      res.SourceID,
			ExternalTxnID: optionalTxnID(row.TxnID),
		}
	}
	if res.TotalRows == 0 {
		res.TotalRows = len(res.Headers)
	}
	return res
}

func parseLegacyDate(raw string) *time.Time {
	for _, layout := range legacyDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func optionalTxnID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
