package matching

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedTxn(t *testing.T, st *store.MemoryStore, amount string, date time.Time) *store.Transaction {
	t.Helper()
	txn := &store.Transaction{
		OrgID:       "org1",
		Date:        date,
		Description: "HARDWARE STORE",
		Amount:      dec(amount),
		Direction:   store.DirectionDebit,
		ExternalID:  "ext-" + amount + date.Format("0102"),
	}
	if _, err := st.InsertTransaction(context.Background(), txn); err != nil {
		t.Fatal(err)
	}
	return txn
}

func seedReceipt(t *testing.T, st *store.MemoryStore, id, total string, date, created time.Time) store.Receipt {
	t.Helper()
	r := &store.Receipt{
		ID:        id,
		OrgID:     "org1",
		Vendor:    "Hardware Store",
		Date:      date,
		Total:     dec(total),
		CreatedAt: created,
	}
	if err := st.InsertReceipt(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	return *r
}

func TestAutoMatchWithinWindow(t *testing.T) {
	st := store.NewMemoryStore()
	txn := seedTxn(t, st, "50.00", day(10))
	seedReceipt(t, st, "r1", "50.00", day(12), day(1))

	m, err := NewMatcher(st).AutoMatch(context.Background(), txn, "bank")
	if err != nil {
		t.Fatal(err)
	}
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.ReceiptID != "r1" {
		t.Errorf("matched %s", m.ReceiptID)
	}
	if m.Method != "bank_auto" {
		t.Errorf("method = %q", m.Method)
	}
	if m.Confidence != 0.85 {
		t.Errorf("confidence = %v", m.Confidence)
	}
	if !m.MatchedAmount.Equal(txn.Amount) {
		t.Errorf("matched amount = %s", m.MatchedAmount)
	}
}

func TestAutoMatchWindowBounds(t *testing.T) {
	st := store.NewMemoryStore()
	txn := seedTxn(t, st, "50.00", day(10))
	// 6 days out and 2 cents off both fall outside the window.
	seedReceipt(t, st, "far-date", "50.00", day(16), day(1))
	seedReceipt(t, st, "far-amount", "50.02", day(10), day(1))

	m, err := NewMatcher(st).AutoMatch(context.Background(), txn, "bank")
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Fatalf("expected no match, got receipt %s", m.ReceiptID)
	}
}

func TestAutoMatchEdgeOfWindow(t *testing.T) {
	st := store.NewMemoryStore()
	txn := seedTxn(t, st, "50.00", day(10))
	// Exactly 5 days and exactly one cent off are both inside.
	seedReceipt(t, st, "edge", "50.01", day(15), day(1))

	m, err := NewMatcher(st).AutoMatch(context.Background(), txn, "square")
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.ReceiptID != "edge" {
		t.Fatalf("expected edge receipt to match, got %+v", m)
	}
	if m.Method != "square_auto" {
		t.Errorf("method = %q", m.Method)
	}
}

func TestAutoMatchSkipsAlreadyMatched(t *testing.T) {
	st := store.NewMemoryStore()
	txn := seedTxn(t, st, "50.00", day(10))
	seedReceipt(t, st, "r1", "50.00", day(10), day(1))
	seedReceipt(t, st, "r2", "50.00", day(10), day(2))

	matcher := NewMatcher(st)
	first, err := matcher.AutoMatch(context.Background(), txn, "bank")
	if err != nil || first == nil {
		t.Fatalf("first match: %v %v", first, err)
	}
	second, err := matcher.AutoMatch(context.Background(), txn, "bank")
	if err != nil {
		t.Fatal(err)
	}
	if second != nil {
		t.Error("transaction matched twice")
	}
	matches, _ := st.ListMatches(context.Background(), "org1")
	if len(matches) != 1 {
		t.Errorf("expected exactly one match row, got %d", len(matches))
	}
}

func TestPickBestTieBreak(t *testing.T) {
	txn := &store.Transaction{Date: day(10), Amount: dec("50.00")}

	closerDate := store.Receipt{ID: "a", Date: day(11), Total: dec("50.01"), CreatedAt: day(5)}
	fartherDate := store.Receipt{ID: "b", Date: day(13), Total: dec("50.00"), CreatedAt: day(1)}
	if got := PickBest(txn, []store.Receipt{fartherDate, closerDate}); got.ID != "a" {
		t.Errorf("date delta should dominate amount delta, got %s", got.ID)
	}

	closerAmount := store.Receipt{ID: "c", Date: day(11), Total: dec("50.00"), CreatedAt: day(5)}
	fartherAmount := store.Receipt{ID: "d", Date: day(11), Total: dec("50.01"), CreatedAt: day(1)}
	if got := PickBest(txn, []store.Receipt{fartherAmount, closerAmount}); got.ID != "c" {
		t.Errorf("amount delta breaks equal dates, got %s", got.ID)
	}

	older := store.Receipt{ID: "e", Date: day(11), Total: dec("50.00"), CreatedAt: day(1)}
	newer := store.Receipt{ID: "f", Date: day(11), Total: dec("50.00"), CreatedAt: day(5)}
	if got := PickBest(txn, []store.Receipt{newer, older}); got.ID != "e" {
		t.Errorf("earlier created_at breaks equal deltas, got %s", got.ID)
	}

	idA := store.Receipt{ID: "g", Date: day(11), Total: dec("50.00"), CreatedAt: day(1)}
	idB := store.Receipt{ID: "h", Date: day(11), Total: dec("50.00"), CreatedAt: day(1)}
	if got := PickBest(txn, []store.Receipt{idB, idA}); got.ID != "g" {
		t.Errorf("receipt id is the final tie-break, got %s", got.ID)
	}
}
