package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs the engine tests
// and local development runs; the single lock mirrors the atomicity the
// Postgres store gets from its unique constraints.
type MemoryStore struct {
	mu           sync.Mutex
	now          func() time.Time
	transactions map[string]*Transaction // id -> txn
	externalIdx  map[string]string       // org|external_id -> txn id
	receipts     map[string]*Receipt
	matches      map[string]*Match
	matchedTxns  map[string]string // org|txn id -> match id
	vendorRules  []VendorRule
	fallbacks    []FallbackRule
	categories   []OrgCategory
	loans        map[string]*LoanLedger // org|loan id
	seq          int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:          time.Now,
		transactions: make(map[string]*Transaction),
		externalIdx:  make(map[string]string),
		receipts:     make(map[string]*Receipt),
		matches:      make(map[string]*Match),
		matchedTxns:  make(map[string]string),
		loans:        make(map[string]*LoanLedger),
	}
}

// SetClock overrides the store clock, used by tests for stable created_at
// ordering.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

func orgKey(orgID, id string) string { return orgID + "|" + id }

func (s *MemoryStore) InsertTransaction(_ context.Context, t *Transaction) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := orgKey(t.OrgID, t.ExternalID)
	if _, exists := s.externalIdx[key]; exists {
		return false, nil
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	cp := *t
	s.transactions[t.ID] = &cp
	s.externalIdx[key] = t.ID
	return true, nil
}

func (s *MemoryStore) OrgIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, t := range s.transactions {
		if _, ok := seen[t.OrgID]; !ok {
			seen[t.OrgID] = struct{}{}
			out = append(out, t.OrgID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, orgID, id string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.OrgID != orgID {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func inDateRange(d time.Time, from, to *time.Time) bool {
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

func (s *MemoryStore) listTransactions(orgID string, from, to *time.Time, uncategorizedOnly bool) []Transaction {
	var out []Transaction
	for _, t := range s.transactions {
		if t.OrgID != orgID || !inDateRange(t.Date, from, to) {
			continue
		}
		if uncategorizedOnly {
			c := strings.TrimSpace(t.Category)
			if c != "" && c != Uncategorized {
				continue
			}
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) ListTransactions(_ context.Context, orgID string, from, to *time.Time) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTransactions(orgID, from, to, false), nil
}

func (s *MemoryStore) ListUncategorized(_ context.Context, orgID string, from, to *time.Time) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTransactions(orgID, from, to, true), nil
}

func (s *MemoryStore) UpdateTransactionCategory(_ context.Context, orgID, id, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.OrgID != orgID {
		return ErrNotFound
	}
	t.Category = category
	return nil
}

func (s *MemoryStore) InsertReceipt(_ context.Context, r *Receipt) error {
	if r.OrgID == "" {
		return ErrMissingOrg
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	cp := *r
	s.receipts[r.ID] = &cp
	return nil
}

func (s *MemoryStore) GetReceipt(_ context.Context, orgID, id string) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[id]
	if !ok || r.OrgID != orgID {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) UpdateReceipt(_ context.Context, r *Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.receipts[r.ID]
	if !ok || old.OrgID != r.OrgID {
		return ErrNotFound
	}
	r.CreatedAt = old.CreatedAt
	cp := *r
	s.receipts[r.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteReceipt(_ context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[id]
	if !ok || r.OrgID != orgID {
		return ErrNotFound
	}
	// Dependent matches go first.
	for mid, m := range s.matches {
		if m.OrgID == orgID && m.ReceiptID == id {
			delete(s.matchedTxns, orgKey(orgID, m.TransactionID))
			delete(s.matches, mid)
		}
	}
	delete(s.receipts, id)
	return nil
}

func (s *MemoryStore) ListReceipts(_ context.Context, orgID string) ([]Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Receipt
	for _, r := range s.receipts {
		if r.OrgID == orgID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) ReceiptsInWindow(_ context.Context, w ReceiptWindow) ([]Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Receipt
	for _, r := range s.receipts {
		if r.OrgID != w.OrgID {
			continue
		}
		if r.Date.Before(w.DateFrom) || r.Date.After(w.DateTo) {
			continue
		}
		if r.Total.LessThan(w.MinTotal) || r.Total.GreaterThan(w.MaxTotal) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) InsertMatch(_ context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txnKey := orgKey(m.OrgID, m.TransactionID)
	if _, exists := s.matchedTxns[txnKey]; exists {
		return ErrAlreadyMatched
	}
	if t, ok := s.transactions[m.TransactionID]; !ok || t.OrgID != m.OrgID {
		return ErrNotFound
	}
	if r, ok := s.receipts[m.ReceiptID]; !ok || r.OrgID != m.OrgID {
		return ErrNotFound
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	cp := *m
	s.matches[m.ID] = &cp
	s.matchedTxns[txnKey] = m.ID
	return nil
}

func (s *MemoryStore) HasMatchForTransaction(_ context.Context, orgID, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.matchedTxns[orgKey(orgID, transactionID)]
	return ok, nil
}

func (s *MemoryStore) DeleteMatch(_ context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok || m.OrgID != orgID {
		return ErrNotFound
	}
	delete(s.matchedTxns, orgKey(orgID, m.TransactionID))
	delete(s.matches, id)
	return nil
}

func (s *MemoryStore) ListMatches(_ context.Context, orgID string) ([]Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Match
	for _, m := range s.matches {
		if m.OrgID == orgID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListVendorRules(_ context.Context, orgID string) ([]VendorRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []VendorRule
	for _, r := range s.vendorRules {
		if r.OrgID == orgID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *MemoryStore) InsertVendorRule(_ context.Context, r *VendorRule) error {
	if r.OrgID == "" {
		return ErrMissingOrg
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	s.seq++
	r.Position = s.seq
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.vendorRules = append(s.vendorRules, *r)
	return nil
}

func (s *MemoryStore) DeleteVendorRule(_ context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.vendorRules {
		if r.OrgID == orgID && r.ID == id {
			s.vendorRules = append(s.vendorRules[:i], s.vendorRules[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ListFallbackRules(_ context.Context, orgID string) ([]FallbackRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []FallbackRule
	for _, r := range s.fallbacks {
		if r.OrgID == orgID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *MemoryStore) InsertFallbackRule(_ context.Context, r *FallbackRule) error {
	if r.OrgID == "" {
		return ErrMissingOrg
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	s.seq++
	r.Position = s.seq
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.fallbacks = append(s.fallbacks, *r)
	return nil
}

func (s *MemoryStore) DeleteFallbackRule(_ context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.fallbacks {
		if r.OrgID == orgID && r.ID == id {
			s.fallbacks = append(s.fallbacks[:i], s.fallbacks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ListCategories(_ context.Context, orgID string) ([]OrgCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OrgCategory
	for _, c := range s.categories {
		if c.OrgID == orgID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *MemoryStore) ActiveCategoryNames(_ context.Context, orgID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.categories {
		if c.OrgID == orgID && c.Active {
			out = append(out, c.Name)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertCategory(_ context.Context, c *OrgCategory) error {
	if c.OrgID == "" {
		return ErrMissingOrg
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.categories = append(s.categories, *c)
	return nil
}

func (s *MemoryStore) ApplyLoanDelta(_ context.Context, orgID string, d LoanDelta) error {
	if orgID == "" {
		return ErrMissingOrg
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := orgKey(orgID, d.LoanID)
	if l, ok := s.loans[key]; ok {
		// Balance is point-in-time; totals are cumulative.
		l.OutstandingBalance = d.Balance
		l.InterestPaid = l.InterestPaid.Add(d.Interest)
		l.TotalRepayments = l.TotalRepayments.Add(d.Repayment)
		l.UpdatedAt = s.now()
		return nil
	}
	status := LoanStatusPaid
	if d.Balance.GreaterThan(decimal.Zero) {
		status = LoanStatusActive
	}
	s.loans[key] = &LoanLedger{
		OrgID:              orgID,
		LoanID:             d.LoanID,
		Principal:          d.Principal,
		OutstandingBalance: d.Balance,
		InterestPaid:       d.Interest,
		TotalRepayments:    d.Repayment,
		Status:             status,
		UpdatedAt:          s.now(),
	}
	return nil
}

func (s *MemoryStore) GetLoanLedger(_ context.Context, orgID, loanID string) (*LoanLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[orgKey(orgID, loanID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) ListLoanLedgers(_ context.Context, orgID string) ([]LoanLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []LoanLedger
	for _, l := range s.loans {
		if l.OrgID == orgID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoanID < out[j].LoanID })
	return out, nil
}

func (s *MemoryStore) LedgerExport(_ context.Context, orgID string, from, to *time.Time) ([]LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matchedTxn := make(map[string]*Match)
	matchedReceipt := make(map[string]bool)
	for _, m := range s.matches {
		if m.OrgID != orgID {
			continue
		}
		matchedTxn[m.TransactionID] = m
		matchedReceipt[m.ReceiptID] = true
	}

	var out []LedgerEntry
	for _, t := range s.transactions {
		if t.OrgID != orgID || !inDateRange(t.Date, from, to) {
			continue
		}
		e := LedgerEntry{
			Date:          t.Date,
			Description:   t.Description,
			Vendor:        t.VendorClean,
			Amount:        signedAmount(t.Amount, t.Direction),
			Category:      t.Category,
			Source:        t.Institution,
			TransactionID: t.ID,
		}
		if m, ok := matchedTxn[t.ID]; ok {
			e.EntryType = EntryMatched
			e.ReceiptID = m.ReceiptID
			if r, ok := s.receipts[m.ReceiptID]; ok && r.Vendor != "" {
				e.Vendor = r.Vendor
			}
		} else {
			e.EntryType = EntryBankCC
		}
		out = append(out, e)
	}
	for _, r := range s.receipts {
		if r.OrgID != orgID || !inDateRange(r.Date, from, to) {
			continue
		}
		if !strings.EqualFold(r.Source, "cash") || matchedReceipt[r.ID] {
			continue
		}
		out = append(out, LedgerEntry{
			EntryType:   EntryCash,
			Date:        r.Date,
			Description: r.Vendor,
			Vendor:      r.Vendor,
			Amount:      r.Total.Neg(),
			Category:    r.Category,
			Source:      r.Source,
			ReceiptID:   r.ID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func signedAmount(a decimal.Decimal, d Direction) decimal.Decimal {
	if d == DirectionDebit {
		return a.Neg()
	}
	return a
}
