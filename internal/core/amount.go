// Package core holds the canonical ingestion data model shared by the
// source adapters, the preview engine, and the stores.
//
// This file contains amount normalization for the messy strings bank and
// wallet exports put in their amount columns.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyRunes = strings.NewReplacer("₹", "", "$", "", "€", "", "£", "", ",", "")
	numberRe      = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// ParseAmount normalizes an amount cell to a decimal. It strips currency
// symbols and thousands separators and treats a parenthesized value as
// negative, e.g. "(1,200.00)" -> -1200. As a last resort it extracts the
// first number embedded in the string. ok is false when no amount could be
// recovered at all; such rows are excluded from parsing and counted as
// partial failures rather than aborting the file.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.ReplaceAll(currencyRunes.Replace(s), " ", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		m := numberRe.FindString(s)
		if m == "" {
			return decimal.Zero, false
		}
		d, err = decimal.NewFromString(m)
		if err != nil {
			return decimal.Zero, false
		}
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// ParseQuantity reads an integer quantity, tolerating decimal exports like
// "2.0". Anything unreadable or negative collapses to zero.
func ParseQuantity(raw string) int {
	d, ok := ParseAmount(raw)
	if !ok || d.IsNegative() {
		return 0
	}
	return int(d.IntPart())
}
