package importer

import (
	"encoding/json"
	"time"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

// AdaptSquarePayments maps one Square payments row to one or two candidates:
// the net sale as a credit leg, plus a debit fee leg when the row carries a
// non-zero fee. The fee leg is keyed "<paymentId>-fee" so it dedups
// independently of the payment leg.
func AdaptSquarePayments(r Row, orgID string, now func() time.Time) (txns []*store.Transaction, skip bool, err error) {
	pr := squarePaymentsRowFrom(r)
	if pr.PaymentID == "" {
		return nil, true, nil
	}
	net := ParseAmount(pr.NetTotal)
	if net.IsZero() {
		net = ParseAmount(pr.GrossSales)
	}
	if net.IsZero() {
		return nil, true, nil
	}

	date := ParseDate(pr.Date, now)
	desc := pr.Description
	if desc == "" {
		desc = "Square sale " + pr.PaymentID
	}
	raw, _ := json.Marshal(r.Values)

	txns = append(txns, &store.Transaction{
		OrgID:       orgID,
		Date:        date,
		Description: desc,
		VendorClean: CleanVendor(desc),
		Amount:      net.Abs(),
		Direction:   store.DirectionCredit,
		Category:    CategoryIncome,
		Institution: "Square",
		ImportedVia: ViaSquarePayments,
		ExternalID:  pr.PaymentID,
		RawSource:   raw,
	})

	if fee := ParseAmount(pr.Fees).Abs(); !fee.IsZero() {
		txns = append(txns, &store.Transaction{
			OrgID:       orgID,
			Date:        date,
			Description: "Square processing fee " + pr.PaymentID,
			VendorClean: "Square",
			Amount:      fee,
			Direction:   store.DirectionDebit,
			Category:    CategoryBankFees,
			Institution: "Square",
			ImportedVia: ViaSquarePayments,
			ExternalID:  pr.PaymentID + "-fee",
			RawSource:   raw,
		})
	}
	return txns, false, nil
}

// AdaptSquareDeposits maps a transfer-out row to a debit transaction
// categorized as a transfer. Rows with no transfer id or a zero amount are
// skipped, not erroring.
func AdaptSquareDeposits(r Row, orgID string, now func() time.Time) (txn *store.Transaction, skip bool, err error) {
	dr := squareDepositsRowFrom(r)
	if dr.TransferID == "" {
		return nil, true, nil
	}
	amount := ParseAmount(dr.NetAmount).Abs()
	if amount.IsZero() {
		return nil, true, nil
	}
	raw, _ := json.Marshal(r.Values)
	return &store.Transaction{
		OrgID:       orgID,
		Date:        ParseDate(dr.Date, now),
		Description: "Square deposit " + dr.TransferID,
		VendorClean: "Square",
		Amount:      amount,
		Direction:   store.DirectionDebit,
		Category:    CategoryTransfers,
		Institution: "Square",
		ImportedVia: ViaSquareDeposits,
		ExternalID:  dr.TransferID,
		RawSource:   raw,
	}, false, nil
}

// AdaptSquareLoan emits the repayment cash effect as a debit candidate plus
// the per-loan ledger delta. The repayment id falls back to "<loanId>-<date>"
// when the report does not supply one.
func AdaptSquareLoan(r Row, orgID string, now func() time.Time) (txn *store.Transaction, delta *store.LoanDelta, skip bool, err error) {
	lr := squareLoanRowFrom(r)
	if lr.LoanID == "" {
		return nil, nil, true, nil
	}
	repayment := ParseAmount(lr.Repayment).Abs()
	if repayment.IsZero() {
		return nil, nil, true, nil
	}

	date := ParseDate(lr.Date, now)
	extID := lr.RepaymentID
	if extID == "" {
		extID = lr.LoanID + "-" + date.Format("2006-01-02")
	}
	raw, _ := json.Marshal(r.Values)

	txn = &store.Transaction{
		OrgID:       orgID,
		Date:        date,
		Description: "Square loan repayment " + lr.LoanID,
		VendorClean: "Square Capital",
		Amount:      repayment,
		Direction:   store.DirectionDebit,
		Category:    CategoryLoanRepayment,
		Institution: "Square",
		ImportedVia: ViaSquareLoan,
		ExternalID:  extID,
		RawSource:   raw,
	}
	delta = &store.LoanDelta{
		LoanID:    lr.LoanID,
		Principal: ParseAmount(lr.Principal).Abs(),
		Interest:  ParseAmount(lr.Interest).Abs(),
		Repayment: repayment,
		Balance:   ParseAmount(lr.Balance).Abs(),
	}
	return txn, delta, false, nil
}
