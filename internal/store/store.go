package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Flow direction of a transaction. The amount column is always non-negative;
// the sign of the cash flow lives here and only here.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Uncategorized is the implicit member of every org's category set.
const Uncategorized = "Uncategorized"

var (
	ErrNotFound           = errors.New("record not found")
	ErrAlreadyMatched     = errors.New("transaction already has a match")
	ErrDuplicateExternal  = errors.New("transaction with this external id already exists")
	ErrMissingOrg         = errors.New("org_id is required")
	ErrMissingExternalID  = errors.New("external_id is required")
	ErrNegativeAmount     = errors.New("amount must be non-negative")
	ErrInvalidDirection   = errors.New("direction must be debit or credit")
)

// Transaction is the canonical record every source adapter normalizes into.
type Transaction struct {
	ID            string
	OrgID         string
	Date          time.Time
	Description   string
	VendorClean   string
	Amount        decimal.Decimal
	Direction     Direction
	Category      string
	Institution   string
	SourceAccount string
	ImportedVia   string
	ExternalID    string
	RawSource     json.RawMessage
	CreatedAt     time.Time
}

// Validate enforces the candidate invariants before insert.
func (t *Transaction) Validate() error {
	if t.OrgID == "" {
		return ErrMissingOrg
	}
	if t.ExternalID == "" {
		return ErrMissingExternalID
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if t.Direction != DirectionDebit && t.Direction != DirectionCredit {
		return ErrInvalidDirection
	}
	return nil
}

type Receipt struct {
	ID        string
	OrgID     string
	Vendor    string
	Date      time.Time
	Total     decimal.Decimal
	Tax       decimal.Decimal
	Category  string
	Source    string
	ImageRef  string
	Notes     string
	CreatedAt time.Time
}

type Match struct {
	ID            string
	OrgID         string
	TransactionID string
	ReceiptID     string
	Method        string
	Confidence    float64
	MatchedAmount decimal.Decimal
	CreatedAt     time.Time
}

// VendorRule is the primary categorization rule: a case-insensitive regular
// expression tested against description and cleaned vendor. Rules evaluate in
// insertion order; Position preserves that order across stores.
type VendorRule struct {
	ID              string
	OrgID           string
	VendorPattern   string
	Category        string
	DirectionFilter Direction
	Position        int
	CreatedAt       time.Time
}

// FallbackRule is the secondary rule table, consulted only when no vendor
// rule matched.
type FallbackRule struct {
	ID              string
	OrgID           string
	MatchPattern    string
	DefaultCategory string
	Enabled         bool
	Position        int
	CreatedAt       time.Time
}

type OrgCategory struct {
	ID        string
	OrgID     string
	Name      string
	SortOrder int
	Active    bool
}

const (
	LoanStatusActive = "active"
	LoanStatusPaid   = "paid"
)

type LoanLedger struct {
	OrgID              string
	LoanID             string
	Principal          decimal.Decimal
	OutstandingBalance decimal.Decimal
	InterestPaid       decimal.Decimal
	TotalRepayments    decimal.Decimal
	Status             string
	UpdatedAt          time.Time
}

// LoanDelta is one repayment row from a Square loan report. Balance is a
// point-in-time figure (latest statement wins); Interest and Repayment are
// per-row increments.
type LoanDelta struct {
	LoanID    string
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Repayment decimal.Decimal
	Balance   decimal.Decimal
}

// Ledger export entry types.
const (
	EntryMatched = "matched"
	EntryBankCC  = "bank_cc"
	EntryCash    = "cash"
)

// LedgerEntry is one row of the unified signed-amount export: matched
// transaction+receipt pairs, unmatched bank/card transactions, and cash
// receipts that never hit a bank feed.
type LedgerEntry struct {
	EntryType     string
	Date          time.Time
	Description   string
	Vendor        string
	Amount        decimal.Decimal
	Category      string
	Source        string
	TransactionID string
	ReceiptID     string
}

// ReceiptWindow bounds the candidate query used by the matching engine.
type ReceiptWindow struct {
	OrgID    string
	DateFrom time.Time
	DateTo   time.Time
	MinTotal decimal.Decimal
	MaxTotal decimal.Decimal
}

// CategoryUpdate is one pending category assignment from the bulk
// re-categorization path.
type CategoryUpdate struct {
	TransactionID string
	Category      string
}

// Store is the org-scoped durable state behind the reconciliation engine.
// Every method sees only the rows of the org it is called with.
type Store interface {
	// InsertTransaction inserts atomically against the (org_id, external_id)
	// uniqueness constraint. A conflict is reported as inserted == false with
	// a nil error; that is the duplicate signal, not a failure.
	InsertTransaction(ctx context.Context, t *Transaction) (inserted bool, err error)
	// OrgIDs enumerates every org that owns at least one transaction; the
	// bulk re-categorization job iterates it.
	OrgIDs(ctx context.Context) ([]string, error)
	GetTransaction(ctx context.Context, orgID, id string) (*Transaction, error)
	ListTransactions(ctx context.Context, orgID string, from, to *time.Time) ([]Transaction, error)
	ListUncategorized(ctx context.Context, orgID string, from, to *time.Time) ([]Transaction, error)
	UpdateTransactionCategory(ctx context.Context, orgID, id, category string) error

	InsertReceipt(ctx context.Context, r *Receipt) error
	GetReceipt(ctx context.Context, orgID, id string) (*Receipt, error)
	UpdateReceipt(ctx context.Context, r *Receipt) error
	// DeleteReceipt removes dependent matches first; receipts are never
	// deleted implicitly.
	DeleteReceipt(ctx context.Context, orgID, id string) error
	ListReceipts(ctx context.Context, orgID string) ([]Receipt, error)
	ReceiptsInWindow(ctx context.Context, w ReceiptWindow) ([]Receipt, error)

	// InsertMatch fails with ErrAlreadyMatched when the transaction already
	// has a match row.
	InsertMatch(ctx context.Context, m *Match) error
	HasMatchForTransaction(ctx context.Context, orgID, transactionID string) (bool, error)
	DeleteMatch(ctx context.Context, orgID, id string) error
	ListMatches(ctx context.Context, orgID string) ([]Match, error)

	ListVendorRules(ctx context.Context, orgID string) ([]VendorRule, error)
	InsertVendorRule(ctx context.Context, r *VendorRule) error
	DeleteVendorRule(ctx context.Context, orgID, id string) error
	ListFallbackRules(ctx context.Context, orgID string) ([]FallbackRule, error)
	InsertFallbackRule(ctx context.Context, r *FallbackRule) error
	DeleteFallbackRule(ctx context.Context, orgID, id string) error

	ListCategories(ctx context.Context, orgID string) ([]OrgCategory, error)
	ActiveCategoryNames(ctx context.Context, orgID string) ([]string, error)
	InsertCategory(ctx context.Context, c *OrgCategory) error

	// ApplyLoanDelta overwrites the outstanding balance and accumulates
	// interest and repayment totals; first sighting creates the ledger row.
	ApplyLoanDelta(ctx context.Context, orgID string, d LoanDelta) error
	GetLoanLedger(ctx context.Context, orgID, loanID string) (*LoanLedger, error)
	ListLoanLedgers(ctx context.Context, orgID string) ([]LoanLedger, error)

	LedgerExport(ctx context.Context, orgID string, from, to *time.Time) ([]LedgerEntry, error)
}
