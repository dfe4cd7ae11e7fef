package ingest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"monexa/internal/core"
)

// amountTolerance bounds how far apart two amounts may be to still count
// as a probable duplicate.
var amountTolerance = decimal.NewFromInt(1)

// matchWorkers caps the goroutines used for row matching.
const matchWorkers = 8

// Match compares preview headers against a snapshot of the historical
// store and returns exactly one candidate per header, in input order.
//
// Policy, in priority order:
//  1. equal ExternalTxnID                     -> exact
//  2. equal (date, amount, source id) tuple   -> exact
//  3. amount within tolerance and date within one day -> probable
//  4. otherwise                               -> none
//
// Rows in the same preview are never matched against each other;
// cross-row dedupe within one file is a known, deliberate gap. Rows are
// matched concurrently but the result slice is positional, so output
// order is always input order.
func Match(ctx context.Context, headers []core.TransactionHeader, history []core.StoredTransaction) []core.DedupeCandidate {
	out := make([]core.DedupeCandidate, len(headers))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(matchWorkers)
	for i, h := range headers {
		g.Go(func() error {
			out[i] = matchOne(h, history)
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	return out
}

func matchOne(h core.TransactionHeader, history []core.StoredTransaction) core.DedupeCandidate {
	cand := core.DedupeCandidate{
		PreviewRowIndex: h.RowIndex,
		Confidence:      core.MatchNone,
	}
	var probable *core.StoredTransaction

	for i := range history {
		ex := &history[i]
		if h.ExternalTxnID != nil && ex.ExternalTxnID != nil && *h.ExternalTxnID == *ex.ExternalTxnID {
			cand.Confidence = core.MatchExact
			cand.ExistingRecordRef = ex.ID
			return cand
		}
		if h.OccurredAt == nil || ex.OccurredAt == nil {
			continue
		}
		if sameDay(*h.OccurredAt, *ex.OccurredAt) && h.Amount.Equal(ex.Amount) && h.SourceID == ex.SourceID {
			cand.Confidence = core.MatchExact
			cand.ExistingRecordRef = ex.ID
			return cand
		}
		if probable == nil &&
			h.Amount.Sub(ex.Amount).Abs().LessThan(amountTolerance) &&
			withinOneDay(*h.OccurredAt, *ex.OccurredAt) {
			probable = ex
		}
	}

	if probable != nil {
		cand.Confidence = core.MatchProbable
		cand.ExistingRecordRef = probable.ID
	}
	return cand
}

func sameDay(a, b time.Time) bool {
	return a.UTC().Format("2006-01-02") == b.UTC().Format("2006-01-02")
}

func withinOneDay(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= 24*time.Hour
}
