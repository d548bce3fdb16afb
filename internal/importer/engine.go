// Package importer turns raw statement exports into persisted, categorized,
// receipt-matched transactions. One Engine call processes one submission;
// rows fail individually and the batch always returns its partial summary.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/matching"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/rules"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

var ErrUnknownReportType = errors.New("report_type must be payments, deposits or loan")

// Source keys feeding the "<source>_auto" match method.
const (
	sourceBank   = "bank"
	sourceSquare = "square"
)

type Engine struct {
	store   store.Store
	matcher *matching.Matcher
	now     func() time.Time
}

func NewEngine(st store.Store) *Engine {
	return &Engine{store: st, matcher: matching.NewMatcher(st), now: time.Now}
}

// SetClock overrides the processing clock, used by the date fallback.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// BankImportRequest is one generic bank statement submission.
type BankImportRequest struct {
	OrgID       string
	CSVContent  string
	AccountID   string
	SourceLabel string
	AccountName string
}

// SquareImportRequest is one Square report submission; ReportType selects
// the adapter.
type SquareImportRequest struct {
	OrgID      string
	CSVContent string
	AccountID  string
	ReportType string
}

// ImportBank runs the bank statement pipeline over pre-normalized rows.
// A nil error with a populated report is the normal outcome even when some
// rows failed; only a malformed submission or a rule-load failure aborts.
func (e *Engine) ImportBank(ctx context.Context, req BankImportRequest, rows []Row) (*Report, error) {
	eng, err := rules.Load(ctx, e.store, req.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	opts := BankOptions{
		OrgID:         req.OrgID,
		Institution:   req.SourceLabel,
		SourceAccount: req.AccountName,
		AccountID:     req.AccountID,
	}
	rep := &Report{}
	for _, row := range rows {
		txn, skip, err := AdaptBankRow(row, opts, e.now)
		if err != nil {
			rep.AddError(row.Line, "", err)
			continue
		}
		if skip {
			rep.Skipped++
			continue
		}
		e.admit(ctx, eng, txn, sourceBank, row.Line, rep)
	}
	return rep, nil
}

// ImportSquare dispatches on report type. Loan rows additionally fold their
// delta into the per-loan ledger after the transaction is admitted.
func (e *Engine) ImportSquare(ctx context.Context, req SquareImportRequest, rows []Row) (*Report, error) {
	switch req.ReportType {
	case "payments", "deposits", "loan":
	default:
		return nil, ErrUnknownReportType
	}
	eng, err := rules.Load(ctx, e.store, req.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	rep := &Report{}
	for _, row := range rows {
		switch req.ReportType {
		case "payments":
			txns, skip, err := AdaptSquarePayments(row, req.OrgID, e.now)
			if err != nil {
				rep.AddError(row.Line, "", err)
				continue
			}
			if skip {
				rep.Skipped++
				continue
			}
			for _, txn := range txns {
				e.admit(ctx, eng, txn, sourceSquare, row.Line, rep)
			}
		case "deposits":
			txn, skip, err := AdaptSquareDeposits(row, req.OrgID, e.now)
			if err != nil {
				rep.AddError(row.Line, "", err)
				continue
			}
			if skip {
				rep.Skipped++
				continue
			}
			e.admit(ctx, eng, txn, sourceSquare, row.Line, rep)
		case "loan":
			txn, delta, skip, err := AdaptSquareLoan(row, req.OrgID, e.now)
			if err != nil {
				rep.AddError(row.Line, "", err)
				continue
			}
			if skip {
				rep.Skipped++
				continue
			}
			inserted := e.admit(ctx, eng, txn, sourceSquare, row.Line, rep)
			if inserted {
				if err := e.store.ApplyLoanDelta(ctx, req.OrgID, *delta); err != nil {
					rep.AddError(row.Line, delta.LoanID, fmt.Errorf("loan ledger: %w", err))
				}
			}
		}
	}
	return rep, nil
}

// admit categorizes (when the adapter stamped no default), inserts through
// the dedup gate and attempts an auto match. Storage and match failures go
// into the report; a duplicate bumps its counter and nothing else happens.
func (e *Engine) admit(ctx context.Context, eng *rules.Engine, txn *store.Transaction, sourceKey string, line int, rep *Report) bool {
	if txn.Category == "" {
		txn.Category = eng.Categorize(txn.Description, txn.VendorClean, txn.Direction)
	}
	if err := txn.Validate(); err != nil {
		rep.AddError(line, txn.ExternalID, err)
		return false
	}
	inserted, err := e.store.InsertTransaction(ctx, txn)
	if err != nil {
		rep.AddError(line, txn.ExternalID, fmt.Errorf("persist: %w", err))
		return false
	}
	if !inserted {
		rep.Duplicates++
		return false
	}
	rep.Imported++
	if _, err := e.matcher.AutoMatch(ctx, txn, sourceKey); err != nil {
		rep.AddError(line, txn.ExternalID, fmt.Errorf("match: %w", err))
	}
	return true
}
