package sources

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"monexa/internal/core"
)

// Row is one data record of a CSV file. Fields are keyed by the
// lower-cased, trimmed column name; Ordinal is the zero-based position of
// the record among the file's data rows.
type Row struct {
	Ordinal int
	Fields  map[string]string
}

// Field returns the first non-empty value among the given column aliases.
// Lookup is case-insensitive.
func (r Row) Field(aliases ...string) string {
	for _, a := range aliases {
		if v := strings.TrimSpace(r.Fields[strings.ToLower(a)]); v != "" {
			return v
		}
	}
	return ""
}

// ReadRows decodes raw CSV bytes into rows keyed by the header line. It
// fails only when the payload is not CSV-shaped at all; ragged records are
// tolerated (short rows simply lack the trailing columns).
func ReadRows(raw []byte) ([]Row, error) {
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err == io.EOF {
		return nil, &core.ParseError{Reason: "empty file"}
	}
	if err != nil {
		return nil, &core.ParseError{Reason: "invalid header line", Err: err}
	}
	cols := make([]string, len(head))
	named := 0
	for i, c := range head {
		cols[i] = strings.ToLower(strings.TrimSpace(c))
		if cols[i] != "" {
			named++
		}
	}
	if named == 0 {
		return nil, &core.ParseError{Reason: "no columns"}
	}

	var rows []Row
	for ordinal := 0; ; ordinal++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) && errors.Is(pe.Err, csv.ErrQuote) {
				return nil, &core.ParseError{Reason: "malformed quoting", Err: err}
			}
			return nil, &core.ParseError{Reason: "unreadable record", Err: err}
		}
		fields := make(map[string]string, len(cols))
		for i, v := range rec {
			if i < len(cols) && cols[i] != "" {
				fields[cols[i]] = v
			}
		}
		rows = append(rows, Row{Ordinal: ordinal, Fields: fields})
	}
	return rows, nil
}

// parseDate tries each layout in order and returns nil when none matches.
// A nil date keeps the row; it is flagged for review downstream.
func parseDate(raw string, layouts []string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// optionalID returns nil for an empty transaction reference so absent ids
// never collide with each other during deduplication.
func optionalID(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return &s
}
