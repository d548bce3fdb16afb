package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

func seedSweepTxn(t *testing.T, st *store.MemoryStore, orgID, desc, category string) *store.Transaction {
	t.Helper()
	txn := &store.Transaction{
		OrgID:       orgID,
		Date:        time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Amount:      decimal.RequireFromString("10.00"),
		Direction:   store.DirectionDebit,
		ExternalID:  "ext-" + orgID + "-" + desc,
		Category:    category,
	}
	if _, err := st.InsertTransaction(context.Background(), txn); err != nil {
		t.Fatal(err)
	}
	return txn
}

func seedSweepRules(t *testing.T, st *store.MemoryStore, orgID string) {
	t.Helper()
	ctx := context.Background()
	if err := st.InsertCategory(ctx, &store.OrgCategory{OrgID: orgID, Name: "Meals", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := st.InsertVendorRule(ctx, &store.VendorRule{
		OrgID: orgID, VendorPattern: "coffee", Category: "Meals",
	}); err != nil {
		t.Fatal(err)
	}
}

func TestRunOrgCategorizesOnlyUncategorized(t *testing.T) {
	st := store.NewMemoryStore()
	seedSweepRules(t, st, "org1")

	blank := seedSweepTxn(t, st, "org1", "COFFEE HOUSE", "")
	sentinel := seedSweepTxn(t, st, "org1", "COFFEE CART", store.Uncategorized)
	manual := seedSweepTxn(t, st, "org1", "COFFEE BEANS WHOLESALE", "Inventory")
	unmatched := seedSweepTxn(t, st, "org1", "HARDWARE STORE", "")

	n, err := NewProcessor(st, nil).RunOrg(context.Background(), "org1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("updated = %d, want 2", n)
	}

	ctx := context.Background()
	for _, c := range []struct {
		id   string
		want string
	}{
		{blank.ID, "Meals"},
		{sentinel.ID, "Meals"},
		{manual.ID, "Inventory"},
		{unmatched.ID, ""},
	} {
		got, err := st.GetTransaction(ctx, "org1", c.id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Category != c.want {
			t.Errorf("txn %s category = %q, want %q", c.id, got.Category, c.want)
		}
	}
}

func TestRunOrgIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	seedSweepRules(t, st, "org1")
	seedSweepTxn(t, st, "org1", "COFFEE HOUSE", "")

	p := NewProcessor(st, nil)
	if n, err := p.RunOrg(context.Background(), "org1"); err != nil || n != 1 {
		t.Fatalf("first sweep: n=%d err=%v", n, err)
	}
	if n, err := p.RunOrg(context.Background(), "org1"); err != nil || n != 0 {
		t.Fatalf("second sweep should find nothing: n=%d err=%v", n, err)
	}
}

func TestRunSweepsEveryOrg(t *testing.T) {
	st := store.NewMemoryStore()
	seedSweepRules(t, st, "org1")
	seedSweepRules(t, st, "org2")
	a := seedSweepTxn(t, st, "org1", "COFFEE HOUSE", "")
	b := seedSweepTxn(t, st, "org2", "COFFEE CART", "")

	if err := NewProcessor(st, nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, c := range []struct {
		orgID string
		id    string
	}{{"org1", a.ID}, {"org2", b.ID}} {
		got, err := st.GetTransaction(ctx, c.orgID, c.id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Category != "Meals" {
			t.Errorf("org %s txn category = %q", c.orgID, got.Category)
		}
	}
}

func TestGroupUpdateSmallGroups(t *testing.T) {
	st := store.NewMemoryStore()
	seedSweepRules(t, st, "org1")
	for _, desc := range []string{"COFFEE A", "COFFEE B", "COFFEE C", "COFFEE D", "COFFEE E"} {
		seedSweepTxn(t, st, "org1", desc, "")
	}

	p := &Processor{Store: st, GroupSize: 2}
	n, err := p.RunOrg(context.Background(), "org1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("updated = %d, want 5", n)
	}
	left, _ := st.ListUncategorized(context.Background(), "org1", nil, nil)
	if len(left) != 0 {
		t.Errorf("%d transactions left uncategorized", len(left))
	}
}
