package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(day int) time.Time {
	return time.Date(2024, 7, day, 0, 0, 0, 0, time.UTC)
}

func validTxn(orgID, extID string) *Transaction {
	return &Transaction{
		OrgID:       orgID,
		Date:        date(1),
		Description: "HARDWARE STORE",
		Amount:      d("25.00"),
		Direction:   DirectionDebit,
		ExternalID:  extID,
	}
}

func TestInsertTransactionDedup(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	inserted, err := st.InsertTransaction(ctx, validTxn("org1", "e1"))
	if err != nil || !inserted {
		t.Fatalf("first insert: %v %v", inserted, err)
	}
	inserted, err = st.InsertTransaction(ctx, validTxn("org1", "e1"))
	if err != nil {
		t.Fatalf("duplicate insert must not error: %v", err)
	}
	if inserted {
		t.Error("duplicate external id reported as inserted")
	}
	// Same external id under another org is a distinct record.
	inserted, err = st.InsertTransaction(ctx, validTxn("org2", "e1"))
	if err != nil || !inserted {
		t.Errorf("cross-org insert: %v %v", inserted, err)
	}
}

func TestInsertTransactionValidates(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	cases := []struct {
		name string
		mut  func(*Transaction)
		want error
	}{
		{"missing org", func(x *Transaction) { x.OrgID = "" }, ErrMissingOrg},
		{"missing external id", func(x *Transaction) { x.ExternalID = "" }, ErrMissingExternalID},
		{"negative amount", func(x *Transaction) { x.Amount = d("-1") }, ErrNegativeAmount},
		{"bad direction", func(x *Transaction) { x.Direction = "sideways" }, ErrInvalidDirection},
	}
	for _, c := range cases {
		txn := validTxn("org1", "e-"+c.name)
		c.mut(txn)
		if _, err := st.InsertTransaction(ctx, txn); err != c.want {
			t.Errorf("%s: err = %v, want %v", c.name, err, c.want)
		}
	}
}

func TestOrgScoping(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	txn := validTxn("org1", "e1")
	if _, err := st.InsertTransaction(ctx, txn); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetTransaction(ctx, "org2", txn.ID); err != ErrNotFound {
		t.Errorf("cross-org get err = %v, want ErrNotFound", err)
	}
	if err := st.UpdateTransactionCategory(ctx, "org2", txn.ID, "Meals"); err != ErrNotFound {
		t.Errorf("cross-org update err = %v, want ErrNotFound", err)
	}
}

func TestApplyLoanDelta(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := st.ApplyLoanDelta(ctx, "org1", LoanDelta{
		LoanID: "L1", Principal: d("1000"), Interest: d("5"), Repayment: d("50"), Balance: d("950"),
	}); err != nil {
		t.Fatal(err)
	}
	l, err := st.GetLoanLedger(ctx, "org1", "L1")
	if err != nil {
		t.Fatal(err)
	}
	if l.Status != LoanStatusActive {
		t.Errorf("status = %q", l.Status)
	}

	// Second delta with a zero balance: totals accumulate, balance overwrites,
	// status stays whatever creation decided.
	if err := st.ApplyLoanDelta(ctx, "org1", LoanDelta{
		LoanID: "L1", Interest: d("4"), Repayment: d("950"), Balance: d("0"),
	}); err != nil {
		t.Fatal(err)
	}
	l, _ = st.GetLoanLedger(ctx, "org1", "L1")
	if l.OutstandingBalance.String() != "0" {
		t.Errorf("balance = %s", l.OutstandingBalance)
	}
	if l.InterestPaid.String() != "9" || l.TotalRepayments.String() != "1000" {
		t.Errorf("totals = %s / %s", l.InterestPaid, l.TotalRepayments)
	}
	if l.Status != LoanStatusActive {
		t.Errorf("status changed after creation: %q", l.Status)
	}
	if l.Principal.String() != "1000" {
		t.Errorf("principal = %s", l.Principal)
	}
}

func TestApplyLoanDeltaPaidAtCreation(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	if err := st.ApplyLoanDelta(ctx, "org1", LoanDelta{
		LoanID: "L2", Interest: d("1"), Repayment: d("100"), Balance: d("0"),
	}); err != nil {
		t.Fatal(err)
	}
	l, _ := st.GetLoanLedger(ctx, "org1", "L2")
	if l.Status != LoanStatusPaid {
		t.Errorf("zero-balance first sighting should be paid, got %q", l.Status)
	}
}

func TestDeleteReceiptCascadesMatches(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	txn := validTxn("org1", "e1")
	if _, err := st.InsertTransaction(ctx, txn); err != nil {
		t.Fatal(err)
	}
	r := &Receipt{OrgID: "org1", Vendor: "Hardware Store", Date: date(1), Total: d("25.00")}
	if err := st.InsertReceipt(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := st.InsertMatch(ctx, &Match{
		OrgID: "org1", TransactionID: txn.ID, ReceiptID: r.ID,
		Method: "manual", Confidence: 1.0, MatchedAmount: txn.Amount,
	}); err != nil {
		t.Fatal(err)
	}

	if err := st.DeleteReceipt(ctx, "org1", r.ID); err != nil {
		t.Fatal(err)
	}
	matches, _ := st.ListMatches(ctx, "org1")
	if len(matches) != 0 {
		t.Errorf("dangling matches after receipt delete: %d", len(matches))
	}
	// The transaction is matchable again.
	matched, _ := st.HasMatchForTransaction(ctx, "org1", txn.ID)
	if matched {
		t.Error("transaction still flagged as matched")
	}
}

func TestInsertMatchSingleMatchPerTransaction(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	txn := validTxn("org1", "e1")
	if _, err := st.InsertTransaction(ctx, txn); err != nil {
		t.Fatal(err)
	}
	r1 := &Receipt{OrgID: "org1", Date: date(1), Total: d("25.00")}
	r2 := &Receipt{OrgID: "org1", Date: date(1), Total: d("25.00")}
	for _, r := range []*Receipt{r1, r2} {
		if err := st.InsertReceipt(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.InsertMatch(ctx, &Match{OrgID: "org1", TransactionID: txn.ID, ReceiptID: r1.ID}); err != nil {
		t.Fatal(err)
	}
	err := st.InsertMatch(ctx, &Match{OrgID: "org1", TransactionID: txn.ID, ReceiptID: r2.ID})
	if err != ErrAlreadyMatched {
		t.Errorf("second match err = %v, want ErrAlreadyMatched", err)
	}
}

func TestLedgerExportUnion(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	matchedTxn := validTxn("org1", "e1")
	matchedTxn.Description = "SQ *CAFE"
	matchedTxn.Category = "Meals"
	if _, err := st.InsertTransaction(ctx, matchedTxn); err != nil {
		t.Fatal(err)
	}
	bankTxn := validTxn("org1", "e2")
	bankTxn.Date = date(2)
	bankTxn.Direction = DirectionCredit
	bankTxn.Amount = d("100.00")
	if _, err := st.InsertTransaction(ctx, bankTxn); err != nil {
		t.Fatal(err)
	}

	matchedReceipt := &Receipt{OrgID: "org1", Vendor: "Cafe Roma", Date: date(1), Total: d("25.00"), Source: "cash"}
	cashReceipt := &Receipt{OrgID: "org1", Vendor: "Taco Truck", Date: date(3), Total: d("12.00"), Source: "cash", Category: "Meals"}
	uploadReceipt := &Receipt{OrgID: "org1", Vendor: "Web Store", Date: date(3), Total: d("40.00"), Source: "upload"}
	for _, r := range []*Receipt{matchedReceipt, cashReceipt, uploadReceipt} {
		if err := st.InsertReceipt(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.InsertMatch(ctx, &Match{
		OrgID: "org1", TransactionID: matchedTxn.ID, ReceiptID: matchedReceipt.ID,
	}); err != nil {
		t.Fatal(err)
	}

	entries, err := st.LedgerExport(ctx, "org1", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3 (matched, bank_cc, cash)", len(entries))
	}

	byType := make(map[string]LedgerEntry)
	for _, e := range entries {
		byType[e.EntryType] = e
	}

	m := byType[EntryMatched]
	if m.TransactionID != matchedTxn.ID || m.ReceiptID != matchedReceipt.ID {
		t.Errorf("matched entry ids = %q/%q", m.TransactionID, m.ReceiptID)
	}
	if m.Vendor != "Cafe Roma" {
		t.Errorf("matched entry should prefer receipt vendor, got %q", m.Vendor)
	}
	if m.Amount.String() != "-25" {
		t.Errorf("debit amount should be signed negative: %s", m.Amount)
	}

	b := byType[EntryBankCC]
	if b.TransactionID != bankTxn.ID || b.ReceiptID != "" {
		t.Errorf("bank entry ids = %q/%q", b.TransactionID, b.ReceiptID)
	}
	if b.Amount.String() != "100" {
		t.Errorf("credit amount should stay positive: %s", b.Amount)
	}

	c := byType[EntryCash]
	if c.ReceiptID != cashReceipt.ID {
		t.Errorf("cash entry should be the unmatched cash receipt, got %q", c.ReceiptID)
	}
	if c.Amount.String() != "-12" {
		t.Errorf("cash outflow should be negative: %s", c.Amount)
	}

	// Matched cash receipts and non-cash receipts never produce cash entries.
	for _, e := range entries {
		if e.EntryType == EntryCash && e.ReceiptID == uploadReceipt.ID {
			t.Error("upload receipt leaked into cash entries")
		}
	}
}

func TestLedgerExportDateFilter(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	early := validTxn("org1", "e1")
	late := validTxn("org1", "e2")
	late.Date = date(20)
	for _, txn := range []*Transaction{early, late} {
		if _, err := st.InsertTransaction(ctx, txn); err != nil {
			t.Fatal(err)
		}
	}
	from, to := date(10), date(25)
	entries, err := st.LedgerExport(ctx, "org1", &from, &to)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].TransactionID != late.ID {
		t.Fatalf("date filter returned %d entries", len(entries))
	}
}

func TestOrgIDs(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	for i, orgID := range []string{"zebra", "alpha", "zebra"} {
		txn := validTxn(orgID, "e-"+orgID+"-"+string(rune('a'+i)))
		if _, err := st.InsertTransaction(ctx, txn); err != nil {
			t.Fatal(err)
		}
	}
	orgs, err := st.OrgIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(orgs) != 2 || orgs[0] != "alpha" || orgs[1] != "zebra" {
		t.Errorf("orgs = %v", orgs)
	}
}
