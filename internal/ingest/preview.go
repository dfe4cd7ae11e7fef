// Package ingest implements the non-committing half of the import
// pipeline: previewing a file, reconciling detail lines to their headers,
// and matching preview rows against history. Everything here is a pure
// function over its inputs; durable state is only ever touched by a store.
package ingest

import (
	"monexa/internal/core"
	"monexa/internal/sources"
)

// PreviewResult is a bounded, non-committing parse of one file. TotalRows
// is the number of data rows found in the file, so a caller comparing it
// with len(Headers)+len(Details)+ParseFailures can tell whether the
// preview was truncated.
type PreviewResult struct {
	SourceID      string                   `json:"source"`
	Headers       []core.TransactionHeader `json:"headers"`
	Details       []core.DetailLine        `json:"details"`
	TotalRows     int                      `json:"total_rows"`
	ParseFailures int                      `json:"parse_failures"`
}

// Preview parses raw CSV bytes with the adapter for source and returns at
// most maxRows headers in file order; maxRows <= 0 means no bound. Detail
// lines are linked leniently so the caller sees orphans rather than
// losing them. Preview never mutates durable storage and is a pure
// function of its inputs: re-previewing after a source switch, without
// re-uploading, must give identical output.
func Preview(reg *sources.Registry, source string, raw []byte, maxRows int) (*PreviewResult, error) {
	adapter, err := reg.Lookup(source)
	if err != nil {
		return nil, err
	}
	rows, err := sources.ReadRows(raw)
	if err != nil {
		return nil, err
	}

	parsed := adapter.Parse(rows)
	headers, details := truncate(parsed, maxRows)

	linked, _ := Link(headers, details, false)
	return &PreviewResult{
		SourceID:      source,
		Headers:       headers,
		Details:       linked,
		TotalRows:     parsed.TotalRows,
		ParseFailures: parsed.PartialFailures,
	}, nil
}

// truncate bounds the preview to maxRows headers. Details are kept only up
// to the cut so no detail line dangles past the last previewed header.
func truncate(parsed sources.ParsedFile, maxRows int) ([]core.TransactionHeader, []core.DetailLine) {
	headers, details := parsed.Headers, parsed.Details
	if maxRows <= 0 || len(headers) <= maxRows {
		return headers, details
	}
	cutPos := headers[maxRows].RowIndex
	headers = headers[:maxRows]

	kept := make([]core.DetailLine, 0, len(details))
	for _, d := range details {
		if d.FilePos < cutPos {
			kept = append(kept, d)
		}
	}
	return headers, kept
}
