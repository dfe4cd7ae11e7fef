package sources

import (
	"strings"

	"monexa/internal/core"
)

// Column aliases the generic dialect probes, in priority order.
var (
	genericDateCols   = []string{"date", "txn date", "transaction date", "tx_datetime", "timestamp"}
	genericAmountCols = []string{"amount", "amt", "total_amount", "credit", "debit"}
	genericNoteCols   = []string{"description", "desc", "note", "narration", "remarks"}
	genericTxnCols    = []string{"txnid", "refno", "txn_id", "ref", "transactionref"}
	genericItemCols   = []string{"item", "item_name", "itemname", "sku"}
	genericQtyCols    = []string{"quantity", "qty"}
)

var genericDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"02/Jan/2006",
	"02-Jan-2006",
}

// Naive classification keywords carried over from the deployed parser.
var (
	coffeeKeywords  = []string{"coffee", "cafe", "starbucks", "barista", "tea", "latte", "espresso"}
	groceryKeywords = []string{"rice", "wheat", "tomato", "onion", "oil", "sugar", "milk", "bread", "butter", "fruits", "vegetables"}
)

// GenericAdapter accepts any well-formed CSV with a best-effort column
// heuristic. It is the explicit fallback dialect for files from providers
// without a dedicated adapter.
type GenericAdapter struct{}

func (a *GenericAdapter) Source() string { return "generic" }

func (a *GenericAdapter) Parse(rows []Row) ParsedFile {
	var out ParsedFile
	out.TotalRows = len(rows)
	block := 0
	for _, r := range rows {
		// A row naming an item but carrying no date is a receipt line
		// item, not a transaction of its own.
		if item := r.Field(genericItemCols...); item != "" && r.Field(genericDateCols...) == "" {
			amt, _ := core.ParseAmount(r.Field(genericAmountCols...))
			out.Details = append(out.Details, core.DetailLine{
				RowIndex: block,
				ItemName: item,
				Quantity: core.ParseQuantity(r.Field(genericQtyCols...)),
				Amount:   amt,
				FilePos:  r.Ordinal,
			})
			block++
			continue
		}

		amt, ok := core.ParseAmount(r.Field(genericAmountCols...))
		if !ok {
			// A failed header still opens a new block: item rows under it
			// number from zero, not from the previous receipt.
			out.PartialFailures++
			block = 0
			continue
		}
		note := r.Field(genericNoteCols...)
		out.Headers = append(out.Headers, core.TransactionHeader{
			RowIndex:      r.Ordinal,
			OccurredAt:    parseDate(r.Field(genericDateCols...), genericDateLayouts),
			Category:      classify(note),
			Amount:        amt,
			Note:          note,
			SourceID:      a.Source(),
			ExternalTxnID: optionalID(r.Field(genericTxnCols...)),
		})
		block = 0
	}
	return out
}

// classify tags a transaction by description keywords. Deliberately naive;
// downstream categorization may overwrite it.
func classify(note string) string {
	low := strings.ToLower(note)
	for _, k := range coffeeKeywords {
		if strings.Contains(low, k) {
			return "coffee"
		}
	}
	for _, k := range groceryKeywords {
		if strings.Contains(low, k) {
			return "groceries"
		}
	}
	return "misc"
}
