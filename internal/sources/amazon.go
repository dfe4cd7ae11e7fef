package sources

import (
	"strings"

	"monexa/internal/core"
)

var amazonDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02T15:04:05",
}

// AmazonAdapter parses Amazon order exports. An export interleaves order
// rows with the item rows belonging to them: an order row opens a receipt
// and the item rows that follow, until the next order row, are its line
// items. Row type is given by a "type" column where present, otherwise
// inferred: a row with an item name and no order date is an item row.
type AmazonAdapter struct{}

func (a *AmazonAdapter) Source() string { return "amazon" }

func (a *AmazonAdapter) Parse(rows []Row) ParsedFile {
	var out ParsedFile
	out.TotalRows = len(rows)
	block := 0
	for _, r := range rows {
		if isAmazonItem(r) {
			amt, _ := core.ParseAmount(r.Field("amount", "item total", "price"))
			out.Details = append(out.Details, core.DetailLine{
				RowIndex: block,
				ItemName: r.Field("item", "item_name", "title", "product"),
				Quantity: core.ParseQuantity(r.Field("quantity", "qty")),
				Amount:   amt,
				FilePos:  r.Ordinal,
			})
			block++
			continue
		}

		amt, ok := core.ParseAmount(r.Field("amount", "total", "order total", "total_amount"))
		if !ok {
			// An order row that fails to parse still opens a new block.
			out.PartialFailures++
			block = 0
			continue
		}
		out.Headers = append(out.Headers, core.TransactionHeader{
			RowIndex:      r.Ordinal,
			OccurredAt:    parseDate(r.Field("date", "order date", "tx_datetime"), amazonDateLayouts),
			Category:      "shopping",
			Amount:        amt,
			Note:          r.Field("description", "title", "note"),
			SourceID:      a.Source(),
			ExternalTxnID: optionalID(r.Field("orderid", "order id", "txn_id", "txnid")),
		})
		block = 0
	}
	return out
}

func isAmazonItem(r Row) bool {
	switch strings.ToLower(r.Field("type", "row type")) {
	case "item":
		return true
	case "order":
		return false
	}
	return r.Field("item", "item_name", "title", "product") != "" &&
		r.Field("date", "order date", "tx_datetime") == ""
}
