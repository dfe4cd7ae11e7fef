package sources

import (
	"monexa/internal/core"
)

// Wallet exports are shaped alike: one transaction per row, a merchant or
// narration column, and a provider transaction id that is the strongest
// dedupe key we ever get.

var walletDateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// GPayAdapter parses Google Pay activity exports.
type GPayAdapter struct{}

func (a *GPayAdapter) Source() string { return "gpay" }

func (a *GPayAdapter) Parse(rows []Row) ParsedFile {
	return parseWallet(a.Source(), rows, walletSpec{
		noteCols: []string{"merchant", "description", "note"},
		txnCols:  []string{"txnid", "txn_id"},
	})
}

// PaytmAdapter parses Paytm statement exports.
type PaytmAdapter struct{}

func (a *PaytmAdapter) Source() string { return "paytm" }

func (a *PaytmAdapter) Parse(rows []Row) ParsedFile {
	return parseWallet(a.Source(), rows, walletSpec{
		noteCols: []string{"narration", "note", "description"},
		txnCols:  []string{"orderid", "txn_id", "txnid"},
	})
}

// PhonePeAdapter parses PhonePe statement exports.
type PhonePeAdapter struct{}

func (a *PhonePeAdapter) Source() string { return "phonepe" }

func (a *PhonePeAdapter) Parse(rows []Row) ParsedFile {
	return parseWallet(a.Source(), rows, walletSpec{
		noteCols: []string{"merchant", "narration", "description", "note"},
		txnCols:  []string{"utr", "transactionid", "txn_id", "txnid"},
	})
}

type walletSpec struct {
	noteCols []string
	txnCols  []string
}

func parseWallet(source string, rows []Row, spec walletSpec) ParsedFile {
	var out ParsedFile
	out.TotalRows = len(rows)
	for _, r := range rows {
		amt, ok := core.ParseAmount(r.Field("amount", "total_amount", "amt"))
		if !ok {
			out.PartialFailures++
			continue
		}
		out.Headers = append(out.Headers, core.TransactionHeader{
			RowIndex:      r.Ordinal,
			OccurredAt:    parseDate(r.Field("date", "tx_datetime", "timestamp"), walletDateLayouts),
			Category:      source,
			Amount:        amt,
			Note:          r.Field(spec.noteCols...),
			SourceID:      source,
			ExternalTxnID: optionalID(r.Field(spec.txnCols...)),
		})
	}
	return out
}
