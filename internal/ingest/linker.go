package ingest

import (
	"monexa/internal/core"
)

// Link reconciles detail lines to their parent headers. A detail line
// belongs to the nearest preceding header in file order; a new header
// closes the previous receipt. Output order matches input order and no
// line is ever dropped.
//
// In lenient mode an unmatched line keeps LinkedHeaderIndex nil and is
// reported by the caller. In strict mode any unmatched line fails the
// whole pass with an UnlinkedDetailError naming the offending lines, for
// callers that require every item to reconcile before committing.
func Link(headers []core.TransactionHeader, details []core.DetailLine, strict bool) ([]core.DetailLine, error) {
	out := make([]core.DetailLine, len(details))
	var orphans []int

	hi := 0 // index of the first header at or past the current detail
	for i, d := range details {
		out[i] = d
		out[i].LinkedHeaderIndex = nil

		for hi < len(headers) && headers[hi].RowIndex < d.FilePos {
			hi++
		}
		if hi == 0 {
			// No header has opened yet; the line is an orphan.
			orphans = append(orphans, d.RowIndex)
			continue
		}
		idx := headers[hi-1].RowIndex
		out[i].LinkedHeaderIndex = &idx
	}

	if strict && len(orphans) > 0 {
		return nil, &core.UnlinkedDetailError{RowIndexes: orphans}
	}
	return out, nil
}
