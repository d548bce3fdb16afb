// Package matching proposes receipt matches for freshly imported
// transactions using the date/amount tolerance window.
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/config"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

// amountTolerance is the ±$0.01 half-width of the total window.
var amountTolerance = decimal.RequireFromString(config.MatchAmountTolerance)

// Matcher searches receipts within ±MatchWindowDays of the transaction date
// and ±0.01 of its absolute amount. The winner among multiple candidates is
// chosen by an explicit tie-break: smallest date delta, then smallest amount
// delta, then earliest created, then receipt id. Confidence is the fixed
// 0.85 regardless of how tight the match is.
type Matcher struct {
	store store.Store
}

func NewMatcher(st store.Store) *Matcher {
	return &Matcher{store: st}
}

// AutoMatch records a match for txn when a compatible receipt exists and the
// transaction is not already matched. sourceKey names the import source and
// becomes the "<source>_auto" method. Returns nil when no candidate fits.
func (m *Matcher) AutoMatch(ctx context.Context, txn *store.Transaction, sourceKey string) (*store.Match, error) {
	candidates, err := m.store.ReceiptsInWindow(ctx, store.ReceiptWindow{
		OrgID:    txn.OrgID,
		DateFrom: txn.Date.AddDate(0, 0, -config.MatchWindowDays),
		DateTo:   txn.Date.AddDate(0, 0, config.MatchWindowDays),
		MinTotal: txn.Amount.Sub(amountTolerance),
		MaxTotal: txn.Amount.Add(amountTolerance),
	})
	if err != nil {
		return nil, fmt.Errorf("receipt candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	already, err := m.store.HasMatchForTransaction(ctx, txn.OrgID, txn.ID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, nil
	}
	best := PickBest(txn, candidates)
	match := &store.Match{
		OrgID:         txn.OrgID,
		TransactionID: txn.ID,
		ReceiptID:     best.ID,
		Method:        sourceKey + "_auto",
		Confidence:    config.AutoMatchConfidence,
		MatchedAmount: txn.Amount,
	}
	if err := m.store.InsertMatch(ctx, match); err != nil {
		if err == store.ErrAlreadyMatched {
			return nil, nil
		}
		return nil, fmt.Errorf("insert match: %w", err)
	}
	return match, nil
}

// PickBest applies the tie-break over a non-empty candidate slice.
func PickBest(txn *store.Transaction, candidates []store.Receipt) store.Receipt {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if closer(txn, c, best) {
			best = c
		}
	}
	return best
}

// closer reports whether a beats b for txn.
func closer(txn *store.Transaction, a, b store.Receipt) bool {
	da, db := dateDelta(txn.Date, a.Date), dateDelta(txn.Date, b.Date)
	if da != db {
		return da < db
	}
	aa, ab := txn.Amount.Sub(a.Total).Abs(), txn.Amount.Sub(b.Total).Abs()
	if cmp := aa.Cmp(ab); cmp != 0 {
		return cmp < 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func dateDelta(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
