package sources

import (
	"monexa/internal/core"
)

var bankDateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"2006-01-02T15:04:05",
	"02-Jan-2006",
}

// BankAdapter parses bank statement exports. Statements are the messiest
// dialect: date formats vary per bank, amounts may carry currency symbols
// or live in separate Credit/Debit columns, and references hide behind
// half a dozen column names.
type BankAdapter struct{}

func (a *BankAdapter) Source() string { return "bank" }

func (a *BankAdapter) Parse(rows []Row) ParsedFile {
	var out ParsedFile
	out.TotalRows = len(rows)
	for _, r := range rows {
		amountRaw := r.Field("amount", "amt", "total_amount", "credit", "debit")
		amt, ok := core.ParseAmount(amountRaw)
		if !ok {
			out.PartialFailures++
			continue
		}
		dateRaw := r.Field("txn date", "transaction date", "date", "tx_datetime", "timestamp")
		note := r.Field("description", "narration", "note", "remarks")
		out.Headers = append(out.Headers, core.TransactionHeader{
			RowIndex:      r.Ordinal,
			OccurredAt:    parseDate(dateRaw, bankDateLayouts),
			Category:      "bank",
			Amount:        amt,
			Note:          note,
			SourceID:      a.Source(),
			ExternalTxnID: optionalID(r.Field("refno", "ref", "txn_id", "transactionref")),
		})
	}
	return out
}
