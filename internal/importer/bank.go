package importer

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

// BankOptions carries the caller-selected labels for a bank statement upload.
// Institution and source account are never inferred from row content.
type BankOptions struct {
	OrgID         string
	Institution   string
	SourceAccount string
	AccountID     string
}

// AdaptBankRow maps one bank statement row to a canonical transaction.
// skip == true means the row carries nothing importable (no date and no
// amount in any recognized column); that is a counted outcome, not an error.
func AdaptBankRow(r Row, opts BankOptions, now func() time.Time) (txn *store.Transaction, skip bool, err error) {
	br := bankRowFrom(r)

	var amount decimal.Decimal
	var dir store.Direction
	switch {
	case br.Amount != "":
		amount = ParseAmount(br.Amount)
		if amount.IsNegative() {
			dir = store.DirectionDebit
			amount = amount.Abs()
		} else {
			dir = store.DirectionCredit
		}
	case br.Debit != "":
		amount = ParseAmount(br.Debit).Abs()
		dir = store.DirectionDebit
	case br.Credit != "":
		amount = ParseAmount(br.Credit).Abs()
		dir = store.DirectionCredit
	default:
		return nil, true, nil
	}
	if amount.IsZero() {
		return nil, true, nil
	}

	date := ParseDate(br.Date, now)
	extID := br.Reference
	if extID == "" {
		extID = DeriveTxnHash(opts.OrgID, date, br.Description, amount, dir)
	}

	raw, _ := json.Marshal(r.Values)
	return &store.Transaction{
		OrgID:         opts.OrgID,
		Date:          date,
		Description:   br.Description,
		VendorClean:   CleanVendor(br.Description),
		Amount:        amount,
		Direction:     dir,
		Institution:   opts.Institution,
		SourceAccount: opts.SourceAccount,
		ImportedVia:   ViaBankCSV,
		ExternalID:    extID,
		RawSource:     raw,
	}, false, nil
}
