package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

const orgID = "org-test"

func newTestEngine(st *store.MemoryStore) *Engine {
	eng := NewEngine(st)
	eng.SetClock(func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) })
	return eng
}

func mustRows(t *testing.T, csvText string) []Row {
	t.Helper()
	rows, err := NormalizeText(csvText)
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func seedCategories(t *testing.T, st *store.MemoryStore, names ...string) {
	t.Helper()
	for i, name := range names {
		if err := st.InsertCategory(context.Background(), &store.OrgCategory{
			OrgID: orgID, Name: name, SortOrder: i, Active: true,
		}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestImportBankCSV(t *testing.T) {
	st := store.NewMemoryStore()
	seedCategories(t, st, "Meals")
	if err := st.InsertVendorRule(context.Background(), &store.VendorRule{
		OrgID: orgID, VendorPattern: "coffee", Category: "Meals",
	}); err != nil {
		t.Fatal(err)
	}

	csvText := "Date,Description,Amount,Reference\n" +
		"2024-05-01,SQ *COFFEE HOUSE,-4.50,ref1\n" +
		"2024-05-02,Payroll Deposit,1000.00,ref2\n"
	rep, err := newTestEngine(st).ImportBank(context.Background(), BankImportRequest{
		OrgID: orgID, SourceLabel: "First Bank", AccountName: "Checking",
	}, mustRows(t, csvText))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Imported != 2 || rep.Duplicates != 0 || rep.Skipped != 0 || len(rep.Errors) != 0 {
		t.Fatalf("report = %+v", rep)
	}

	txns, _ := st.ListTransactions(context.Background(), orgID, nil, nil)
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
	coffee := txns[0]
	if coffee.Direction != store.DirectionDebit || coffee.Amount.String() != "4.5" {
		t.Errorf("negative amount should become debit magnitude: %s %s", coffee.Direction, coffee.Amount)
	}
	if coffee.Category != "Meals" {
		t.Errorf("rule category not applied: %q", coffee.Category)
	}
	if coffee.Institution != "First Bank" || coffee.SourceAccount != "Checking" {
		t.Errorf("caller labels not carried: %q %q", coffee.Institution, coffee.SourceAccount)
	}
	if txns[1].Direction != store.DirectionCredit {
		t.Errorf("positive amount should be credit")
	}
}

func TestImportBankReimportAllDuplicates(t *testing.T) {
	st := store.NewMemoryStore()
	csvText := "Date,Description,Amount,Reference\n2024-05-01,Coffee,-4.50,ref1\n2024-05-02,Deposit,10.00,ref2\n"
	eng := newTestEngine(st)
	ctx := context.Background()

	if _, err := eng.ImportBank(ctx, BankImportRequest{OrgID: orgID}, mustRows(t, csvText)); err != nil {
		t.Fatal(err)
	}
	rep, err := eng.ImportBank(ctx, BankImportRequest{OrgID: orgID}, mustRows(t, csvText))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Imported != 0 || rep.Duplicates != 2 {
		t.Fatalf("re-import report = %+v", rep)
	}
	txns, _ := st.ListTransactions(ctx, orgID, nil, nil)
	if len(txns) != 2 {
		t.Fatalf("duplicates leaked: %d rows", len(txns))
	}
}

func TestImportBankHashDedupWithoutReference(t *testing.T) {
	st := store.NewMemoryStore()
	csvText := "Date,Description,Amount\n2024-05-01,Coffee,-4.50\n"
	eng := newTestEngine(st)
	ctx := context.Background()

	if _, err := eng.ImportBank(ctx, BankImportRequest{OrgID: orgID}, mustRows(t, csvText)); err != nil {
		t.Fatal(err)
	}
	rep, _ := eng.ImportBank(ctx, BankImportRequest{OrgID: orgID}, mustRows(t, csvText))
	if rep.Duplicates != 1 {
		t.Fatalf("derived-hash dedup failed: %+v", rep)
	}
}

func TestImportBankSkipsEmptyRows(t *testing.T) {
	st := store.NewMemoryStore()
	csvText := "Date,Description,Amount\n2024-05-01,Nothing here,\n2024-05-02,Zero,0.00\n2024-05-03,Real,5.00\n"
	rep, err := newTestEngine(st).ImportBank(context.Background(), BankImportRequest{OrgID: orgID}, mustRows(t, csvText))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Skipped != 2 || rep.Imported != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestImportSquarePaymentsTwoLegs(t *testing.T) {
	st := store.NewMemoryStore()
	csvText := "Date,Payment ID,Gross Sales,Net Total,Fees,Description\n" +
		"2024-05-01,p1,100.00,97.10,2.90,Square sale\n"
	rep, err := newTestEngine(st).ImportSquare(context.Background(), SquareImportRequest{
		OrgID: orgID, ReportType: "payments",
	}, mustRows(t, csvText))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Imported != 2 {
		t.Fatalf("expected both legs imported, report = %+v", rep)
	}

	txns, _ := st.ListTransactions(context.Background(), orgID, nil, nil)
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
	var credit, fee *store.Transaction
	for i := range txns {
		switch txns[i].ExternalID {
		case "p1":
			credit = &txns[i]
		case "p1-fee":
			fee = &txns[i]
		}
	}
	if credit == nil || fee == nil {
		t.Fatal("missing p1 or p1-fee leg")
	}
	if credit.Direction != store.DirectionCredit || credit.Amount.String() != "97.1" {
		t.Errorf("credit leg = %s %s", credit.Direction, credit.Amount)
	}
	if credit.Category != CategoryIncome {
		t.Errorf("credit category = %q", credit.Category)
	}
	if fee.Direction != store.DirectionDebit || fee.Amount.String() != "2.9" {
		t.Errorf("fee leg = %s %s", fee.Direction, fee.Amount)
	}
	if fee.Category != CategoryBankFees {
		t.Errorf("fee category = %q", fee.Category)
	}
}

func TestImportSquarePaymentsSkipRules(t *testing.T) {
	st := store.NewMemoryStore()
	csvText := "Date,Payment ID,Net Total,Fees\n" +
		"2024-05-01,,97.10,2.90\n" +
		"2024-05-02,p2,0.00,0.00\n"
	rep, err := newTestEngine(st).ImportSquare(context.Background(), SquareImportRequest{
		OrgID: orgID, ReportType: "payments",
	}, mustRows(t, csvText))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Skipped != 2 || rep.Imported != 0 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestImportSquareDeposits(t *testing.T) {
	st := store.NewMemoryStore()
	csvText := "Date,Transfer ID,Net Amount\n" +
		"2024-05-01,t1,250.00\n" +
		"2024-05-02,,100.00\n"
	rep, err := newTestEngine(st).ImportSquare(context.Background(), SquareImportRequest{
		OrgID: orgID, ReportType: "deposits",
	}, mustRows(t, csvText))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Imported != 1 || rep.Skipped != 1 {
		t.Fatalf("report = %+v", rep)
	}
	txns, _ := st.ListTransactions(context.Background(), orgID, nil, nil)
	if txns[0].Direction != store.DirectionDebit || txns[0].Category != CategoryTransfers {
		t.Errorf("deposit leg = %s %q", txns[0].Direction, txns[0].Category)
	}
}

func TestImportSquareLoanLedgerFold(t *testing.T) {
	st := store.NewMemoryStore()
	csvText := "Date,Loan ID,Repayment Amount,Interest,Outstanding Balance\n" +
		"2024-05-01,L1,50,5,950\n" +
		"2024-05-02,L1,50,4,900\n"
	rep, err := newTestEngine(st).ImportSquare(context.Background(), SquareImportRequest{
		OrgID: orgID, ReportType: "loan",
	}, mustRows(t, csvText))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Imported != 2 {
		t.Fatalf("report = %+v", rep)
	}

	l, err := st.GetLoanLedger(context.Background(), orgID, "L1")
	if err != nil {
		t.Fatal(err)
	}
	if l.OutstandingBalance.String() != "900" {
		t.Errorf("balance must be latest statement: %s", l.OutstandingBalance)
	}
	if l.InterestPaid.String() != "9" {
		t.Errorf("interest must accumulate: %s", l.InterestPaid)
	}
	if l.TotalRepayments.String() != "100" {
		t.Errorf("repayments must accumulate: %s", l.TotalRepayments)
	}
	if l.Status != store.LoanStatusActive {
		t.Errorf("status = %q", l.Status)
	}

	// Repayment ids were absent, so external ids fall back to loan+date.
	txns, _ := st.ListTransactions(context.Background(), orgID, nil, nil)
	for _, txn := range txns {
		if !strings.HasPrefix(txn.ExternalID, "L1-2024-05-") {
			t.Errorf("loan external id fallback wrong: %q", txn.ExternalID)
		}
		if txn.Category != CategoryLoanRepayment || txn.Direction != store.DirectionDebit {
			t.Errorf("loan leg = %s %q", txn.Direction, txn.Category)
		}
	}
}

func TestImportSquareLoanDuplicateRowsDoNotDoubleCount(t *testing.T) {
	st := store.NewMemoryStore()
	csvText := "Date,Loan ID,Repayment ID,Repayment Amount,Interest,Outstanding Balance\n" +
		"2024-05-01,L1,rep1,50,5,950\n"
	eng := newTestEngine(st)
	ctx := context.Background()

	if _, err := eng.ImportSquare(ctx, SquareImportRequest{OrgID: orgID, ReportType: "loan"}, mustRows(t, csvText)); err != nil {
		t.Fatal(err)
	}
	rep, err := eng.ImportSquare(ctx, SquareImportRequest{OrgID: orgID, ReportType: "loan"}, mustRows(t, csvText))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Duplicates != 1 {
		t.Fatalf("report = %+v", rep)
	}
	l, _ := st.GetLoanLedger(ctx, orgID, "L1")
	if l.TotalRepayments.String() != "50" {
		t.Errorf("duplicate row must not re-apply loan delta: %s", l.TotalRepayments)
	}
}

func TestImportSquareUnknownReportType(t *testing.T) {
	st := store.NewMemoryStore()
	_, err := newTestEngine(st).ImportSquare(context.Background(), SquareImportRequest{
		OrgID: orgID, ReportType: "refunds",
	}, nil)
	if err != ErrUnknownReportType {
		t.Fatalf("err = %v", err)
	}
}

func TestImportAutoMatchesReceipts(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.InsertReceipt(context.Background(), &store.Receipt{
		ID: "r1", OrgID: orgID, Vendor: "Coffee House",
		Date:  time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Total: decimal.RequireFromString("4.50"),
	}); err != nil {
		t.Fatal(err)
	}

	csvText := "Date,Description,Amount,Reference\n2024-05-01,Coffee,-4.50,ref1\n"
	rep, err := newTestEngine(st).ImportBank(context.Background(), BankImportRequest{OrgID: orgID}, mustRows(t, csvText))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Imported != 1 {
		t.Fatalf("report = %+v", rep)
	}
	matches, _ := st.ListMatches(context.Background(), orgID)
	if len(matches) != 1 {
		t.Fatalf("expected auto match, got %d", len(matches))
	}
	if matches[0].Method != "bank_auto" || matches[0].Confidence != 0.85 {
		t.Errorf("match = %+v", matches[0])
	}
}

func TestReportErrorCap(t *testing.T) {
	rep := &Report{}
	for i := 0; i < 15; i++ {
		rep.AddError(i+1, "", ErrMalformedInput)
	}
	if len(rep.Errors) != 15 {
		t.Fatalf("full error list truncated: %d", len(rep.Errors))
	}
	if got := rep.DisplayErrors(); len(got) != 10 {
		t.Errorf("display errors = %d, want 10", len(got))
	}
	empty := &Report{}
	if got := empty.DisplayErrors(); got == nil || len(got) != 0 {
		t.Errorf("empty display errors should be [], got %v", got)
	}
}
