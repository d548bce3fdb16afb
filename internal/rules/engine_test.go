package rules

import (
	"testing"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

var activeSet = []string{"Sales Income", "Meals", "Software", "Office Supplies"}

func TestVendorRuleOrderWins(t *testing.T) {
	eng := NewEngine([]store.VendorRule{
		{VendorPattern: "coffee", Category: "Meals", Position: 1},
		{VendorPattern: "coffee roasters", Category: "Office Supplies", Position: 2},
	}, nil, activeSet)
	got := eng.Categorize("BLUE COFFEE ROASTERS", "", store.DirectionDebit)
	if got != "Meals" {
		t.Errorf("first matching rule should win, got %q", got)
	}
}

func TestDirectionFilter(t *testing.T) {
	eng := NewEngine([]store.VendorRule{
		{VendorPattern: "acme", Category: "Software", DirectionFilter: store.DirectionDebit},
	}, nil, activeSet)
	if got := eng.Categorize("ACME subscription", "", store.DirectionCredit); got != store.Uncategorized {
		t.Errorf("credit should not match debit-only rule, got %q", got)
	}
	if got := eng.Categorize("ACME subscription", "", store.DirectionDebit); got != "Software" {
		t.Errorf("debit should match, got %q", got)
	}
}

func TestVendorCleanAlsoMatched(t *testing.T) {
	eng := NewEngine([]store.VendorRule{
		{VendorPattern: "^taco truck$", Category: "Meals"},
	}, nil, activeSet)
	if got := eng.Categorize("TST* TACO TRUCK 0042", "TACO TRUCK", store.DirectionDebit); got != "Meals" {
		t.Errorf("cleaned vendor should match anchored pattern, got %q", got)
	}
}

func TestFallbackOnlyWhenNoVendorRuleMatched(t *testing.T) {
	eng := NewEngine(
		[]store.VendorRule{{VendorPattern: "zoom", Category: "Software"}},
		[]store.FallbackRule{{MatchPattern: "zoom", DefaultCategory: "Meals", Enabled: true}},
		activeSet,
	)
	if got := eng.Categorize("ZOOM.US", "", store.DirectionDebit); got != "Software" {
		t.Errorf("vendor rule must shadow fallback, got %q", got)
	}
}

func TestDisabledFallbackIgnored(t *testing.T) {
	eng := NewEngine(nil, []store.FallbackRule{
		{MatchPattern: "lunch", DefaultCategory: "Meals", Enabled: false},
	}, activeSet)
	if got := eng.Categorize("team lunch", "", store.DirectionDebit); got != store.Uncategorized {
		t.Errorf("disabled fallback applied: %q", got)
	}
}

func TestInvalidPatternNeverMatches(t *testing.T) {
	eng := NewEngine([]store.VendorRule{
		{VendorPattern: "([unclosed", Category: "Meals"},
		{VendorPattern: "deli", Category: "Meals"},
	}, nil, activeSet)
	if got := eng.Categorize("CORNER DELI", "", store.DirectionDebit); got != "Meals" {
		t.Errorf("invalid pattern should be skipped, later rule should fire, got %q", got)
	}
	if got := eng.Categorize("([unclosed", "", store.DirectionDebit); got != store.Uncategorized {
		t.Errorf("invalid pattern matched its own literal text: %q", got)
	}
}

func TestSquareCreditSpecialCase(t *testing.T) {
	eng := NewEngine([]store.VendorRule{
		{VendorPattern: "square", Category: "Software"},
	}, nil, activeSet)
	if got := eng.Categorize("Square sale p1", "", store.DirectionCredit); got != SalesIncome {
		t.Errorf("square credit should be Sales Income ahead of rules, got %q", got)
	}
	if got := eng.Categorize("Square sale p1", "", store.DirectionDebit); got != "Software" {
		t.Errorf("square debit should fall through to rules, got %q", got)
	}
}

func TestSquareCreditClampedWhenSalesIncomeInactive(t *testing.T) {
	eng := NewEngine(nil, nil, []string{"Meals"})
	if got := eng.Categorize("Square sale", "", store.DirectionCredit); got != store.Uncategorized {
		t.Errorf("Sales Income not in active set must clamp, got %q", got)
	}
}

func TestClampExactMembership(t *testing.T) {
	eng := NewEngine(nil, nil, []string{"Meals"})
	cases := []struct {
		in   string
		want string
	}{
		{"Meals", "Meals"},
		{"meals", store.Uncategorized},
		{"Meals ", store.Uncategorized},
		{"Travel", store.Uncategorized},
		{store.Uncategorized, store.Uncategorized},
	}
	for _, c := range cases {
		if got := eng.Clamp(c.in); got != c.want {
			t.Errorf("Clamp(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRuleCategoryOutsideActiveSetClamps(t *testing.T) {
	eng := NewEngine([]store.VendorRule{
		{VendorPattern: "uber", Category: "Travel"},
	}, nil, []string{"Meals"})
	if got := eng.Categorize("UBER TRIP", "", store.DirectionDebit); got != store.Uncategorized {
		t.Errorf("rule naming inactive category must clamp, got %q", got)
	}
}

func TestCaseInsensitiveMatching(t *testing.T) {
	eng := NewEngine([]store.VendorRule{
		{VendorPattern: "netflix", Category: "Software"},
	}, nil, activeSet)
	if got := eng.Categorize("NETFLIX.COM", "", store.DirectionDebit); got != "Software" {
		t.Errorf("matching should be case-insensitive, got %q", got)
	}
}
