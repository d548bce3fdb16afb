package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on pgx. Dedup relies on the
// uniq_txn_external constraint over (org_id, external_id): the insert is a
// single ON CONFLICT DO NOTHING statement, so concurrent imports of
// overlapping batches cannot double-insert.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const txnColumns = `transaction_id, org_id, txn_date, description, vendor_clean, amount, direction,
	category, institution, source_account_name, imported_via, external_id, raw_source, created_at`

func (s *PostgresStore) InsertTransaction(ctx context.Context, t *Transaction) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (
			transaction_id, org_id, txn_date, description, vendor_clean, amount, direction,
			category, institution, source_account_name, imported_via, external_id, raw_source
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT ON CONSTRAINT uniq_txn_external DO NOTHING
	`, t.ID, t.OrgID, t.Date, t.Description, t.VendorClean, t.Amount, string(t.Direction),
		t.Category, t.Institution, t.SourceAccount, t.ImportedVia, t.ExternalID, t.RawSource)
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) OrgIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT org_id FROM transactions ORDER BY org_id`)
	if err != nil {
		return nil, fmt.Errorf("query org ids: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var dir string
	err := row.Scan(&t.ID, &t.OrgID, &t.Date, &t.Description, &t.VendorClean, &t.Amount, &dir,
		&t.Category, &t.Institution, &t.SourceAccount, &t.ImportedVia, &t.ExternalID, &t.RawSource, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Direction = Direction(dir)
	return &t, nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, orgID, id string) (*Transaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE org_id = $1 AND transaction_id = $2`, orgID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *PostgresStore) listTransactions(ctx context.Context, orgID string, from, to *time.Time, uncategorizedOnly bool) ([]Transaction, error) {
	q := `SELECT ` + txnColumns + ` FROM transactions WHERE org_id = $1`
	args := []interface{}{orgID}
	if uncategorizedOnly {
		q += ` AND (category IS NULL OR category = '' OR category = '` + Uncategorized + `')`
	}
	if from != nil {
		args = append(args, *from)
		q += fmt.Sprintf(" AND txn_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		q += fmt.Sprintf(" AND txn_date <= $%d", len(args))
	}
	q += ` ORDER BY txn_date, created_at`
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListTransactions(ctx context.Context, orgID string, from, to *time.Time) ([]Transaction, error) {
	return s.listTransactions(ctx, orgID, from, to, false)
}

func (s *PostgresStore) ListUncategorized(ctx context.Context, orgID string, from, to *time.Time) ([]Transaction, error) {
	return s.listTransactions(ctx, orgID, from, to, true)
}

func (s *PostgresStore) UpdateTransactionCategory(ctx context.Context, orgID, id, category string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE transactions SET category = $1 WHERE org_id = $2 AND transaction_id = $3`,
		category, orgID, id)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) InsertReceipt(ctx context.Context, r *Receipt) error {
	if r.OrgID == "" {
		return ErrMissingOrg
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO receipts (receipt_id, org_id, vendor, receipt_date, total, tax, category, source, image_ref, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, r.ID, r.OrgID, r.Vendor, r.Date, r.Total, r.Tax, r.Category, r.Source, r.ImageRef, r.Notes)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

const receiptColumns = `receipt_id, org_id, vendor, receipt_date, total, tax, category, source, image_ref, notes, created_at`

func scanReceipt(row pgx.Row) (*Receipt, error) {
	var r Receipt
	err := row.Scan(&r.ID, &r.OrgID, &r.Vendor, &r.Date, &r.Total, &r.Tax, &r.Category, &r.Source, &r.ImageRef, &r.Notes, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) GetReceipt(ctx context.Context, orgID, id string) (*Receipt, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE org_id = $1 AND receipt_id = $2`, orgID, id)
	r, err := scanReceipt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) UpdateReceipt(ctx context.Context, r *Receipt) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE receipts SET vendor=$1, receipt_date=$2, total=$3, tax=$4, category=$5, source=$6, image_ref=$7, notes=$8
		WHERE org_id = $9 AND receipt_id = $10
	`, r.Vendor, r.Date, r.Total, r.Tax, r.Category, r.Source, r.ImageRef, r.Notes, r.OrgID, r.ID)
	if err != nil {
		return fmt.Errorf("update receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteReceipt(ctx context.Context, orgID, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete receipt: %w", err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `DELETE FROM matches WHERE org_id = $1 AND receipt_id = $2`, orgID, id); err != nil {
		return fmt.Errorf("delete dependent matches: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM receipts WHERE org_id = $1 AND receipt_id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListReceipts(ctx context.Context, orgID string) ([]Receipt, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE org_id = $1 ORDER BY receipt_date, created_at`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()
	var out []Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ReceiptsInWindow(ctx context.Context, w ReceiptWindow) ([]Receipt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+receiptColumns+` FROM receipts
		WHERE org_id = $1 AND receipt_date BETWEEN $2 AND $3 AND total BETWEEN $4 AND $5
		ORDER BY receipt_date, created_at
	`, w.OrgID, w.DateFrom, w.DateTo, w.MinTotal, w.MaxTotal)
	if err != nil {
		return nil, fmt.Errorf("query receipt window: %w", err)
	}
	defer rows.Close()
	var out []Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertMatch(ctx context.Context, m *Match) error {
	exists, err := s.HasMatchForTransaction(ctx, m.OrgID, m.TransactionID)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyMatched
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO matches (match_id, org_id, transaction_id, receipt_id, method, confidence, matched_amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, m.ID, m.OrgID, m.TransactionID, m.ReceiptID, m.Method, m.Confidence, m.MatchedAmount)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasMatchForTransaction(ctx context.Context, orgID, transactionID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM matches WHERE org_id = $1 AND transaction_id = $2)`,
		orgID, transactionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check match: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) DeleteMatch(ctx context.Context, orgID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM matches WHERE org_id = $1 AND match_id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListMatches(ctx context.Context, orgID string) ([]Match, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT match_id, org_id, transaction_id, receipt_id, method, confidence, matched_amount, created_at
		FROM matches WHERE org_id = $1 ORDER BY created_at
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()
	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.OrgID, &m.TransactionID, &m.ReceiptID, &m.Method, &m.Confidence, &m.MatchedAmount, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListVendorRules(ctx context.Context, orgID string) ([]VendorRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rule_id, org_id, vendor_pattern, category, direction_filter, position, created_at
		FROM vendor_rules WHERE org_id = $1 ORDER BY position
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query vendor rules: %w", err)
	}
	defer rows.Close()
	var out []VendorRule
	for rows.Next() {
		var r VendorRule
		var dir string
		if err := rows.Scan(&r.ID, &r.OrgID, &r.VendorPattern, &r.Category, &dir, &r.Position, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.DirectionFilter = Direction(dir)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertVendorRule(ctx context.Context, r *VendorRule) error {
	if r.OrgID == "" {
		return ErrMissingOrg
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO vendor_rules (rule_id, org_id, vendor_pattern, category, direction_filter, position)
		VALUES ($1,$2,$3,$4,$5, (SELECT COALESCE(MAX(position),0)+1 FROM vendor_rules WHERE org_id = $2))
		RETURNING position
	`, r.ID, r.OrgID, r.VendorPattern, r.Category, string(r.DirectionFilter)).Scan(&r.Position)
}

func (s *PostgresStore) DeleteVendorRule(ctx context.Context, orgID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM vendor_rules WHERE org_id = $1 AND rule_id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("delete vendor rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListFallbackRules(ctx context.Context, orgID string) ([]FallbackRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rule_id, org_id, match_pattern, default_category, enabled, position, created_at
		FROM fallback_rules WHERE org_id = $1 ORDER BY position
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query fallback rules: %w", err)
	}
	defer rows.Close()
	var out []FallbackRule
	for rows.Next() {
		var r FallbackRule
		if err := rows.Scan(&r.ID, &r.OrgID, &r.MatchPattern, &r.DefaultCategory, &r.Enabled, &r.Position, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertFallbackRule(ctx context.Context, r *FallbackRule) error {
	if r.OrgID == "" {
		return ErrMissingOrg
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO fallback_rules (rule_id, org_id, match_pattern, default_category, enabled, position)
		VALUES ($1,$2,$3,$4,$5, (SELECT COALESCE(MAX(position),0)+1 FROM fallback_rules WHERE org_id = $2))
		RETURNING position
	`, r.ID, r.OrgID, r.MatchPattern, r.DefaultCategory, r.Enabled).Scan(&r.Position)
}

func (s *PostgresStore) DeleteFallbackRule(ctx context.Context, orgID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM fallback_rules WHERE org_id = $1 AND rule_id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("delete fallback rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, orgID string) ([]OrgCategory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category_id, org_id, name, sort_order, active FROM org_categories
		WHERE org_id = $1 ORDER BY sort_order, name
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()
	var out []OrgCategory
	for rows.Next() {
		var c OrgCategory
		if err := rows.Scan(&c.ID, &c.OrgID, &c.Name, &c.SortOrder, &c.Active); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ActiveCategoryNames(ctx context.Context, orgID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name FROM org_categories WHERE org_id = $1 AND active ORDER BY sort_order, name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query active categories: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertCategory(ctx context.Context, c *OrgCategory) error {
	if c.OrgID == "" {
		return ErrMissingOrg
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO org_categories (category_id, org_id, name, sort_order, active)
		VALUES ($1,$2,$3,$4,$5)
	`, c.ID, c.OrgID, c.Name, c.SortOrder, c.Active)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *PostgresStore) ApplyLoanDelta(ctx context.Context, orgID string, d LoanDelta) error {
	if orgID == "" {
		return ErrMissingOrg
	}
	// Upsert with the mixed policy: balance overwritten, totals accumulated,
	// status fixed at creation time.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO loan_ledgers (org_id, loan_id, principal, outstanding_balance, interest_paid, total_repayments, status, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6, CASE WHEN $4::numeric > 0 THEN 'active' ELSE 'paid' END, now())
		ON CONFLICT (org_id, loan_id) DO UPDATE SET
			outstanding_balance = EXCLUDED.outstanding_balance,
			interest_paid = loan_ledgers.interest_paid + EXCLUDED.interest_paid,
			total_repayments = loan_ledgers.total_repayments + EXCLUDED.total_repayments,
			updated_at = now()
	`, orgID, d.LoanID, d.Principal, d.Balance, d.Interest, d.Repayment)
	if err != nil {
		return fmt.Errorf("apply loan delta: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLoanLedger(ctx context.Context, orgID, loanID string) (*LoanLedger, error) {
	var l LoanLedger
	err := s.pool.QueryRow(ctx, `
		SELECT org_id, loan_id, principal, outstanding_balance, interest_paid, total_repayments, status, updated_at
		FROM loan_ledgers WHERE org_id = $1 AND loan_id = $2
	`, orgID, loanID).Scan(&l.OrgID, &l.LoanID, &l.Principal, &l.OutstandingBalance, &l.InterestPaid, &l.TotalRepayments, &l.Status, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get loan ledger: %w", err)
	}
	return &l, nil
}

func (s *PostgresStore) ListLoanLedgers(ctx context.Context, orgID string) ([]LoanLedger, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT org_id, loan_id, principal, outstanding_balance, interest_paid, total_repayments, status, updated_at
		FROM loan_ledgers WHERE org_id = $1 ORDER BY loan_id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query loan ledgers: %w", err)
	}
	defer rows.Close()
	var out []LoanLedger
	for rows.Next() {
		var l LoanLedger
		if err := rows.Scan(&l.OrgID, &l.LoanID, &l.Principal, &l.OutstandingBalance, &l.InterestPaid, &l.TotalRepayments, &l.Status, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LedgerExport(ctx context.Context, orgID string, from, to *time.Time) ([]LedgerEntry, error) {
	var lo, hi time.Time
	if from != nil {
		lo = *from
	} else {
		lo = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if to != nil {
		hi = *to
	} else {
		hi = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT
			CASE WHEN m.match_id IS NULL THEN 'bank_cc' ELSE 'matched' END AS entry_type,
			t.txn_date,
			t.description,
			COALESCE(NULLIF(r.vendor, ''), t.vendor_clean) AS vendor,
			CASE WHEN t.direction = 'debit' THEN -t.amount ELSE t.amount END AS amount,
			t.category,
			t.institution,
			t.transaction_id,
			COALESCE(m.receipt_id, '')
		FROM transactions t
		LEFT JOIN matches m ON m.org_id = t.org_id AND m.transaction_id = t.transaction_id
		LEFT JOIN receipts r ON r.org_id = t.org_id AND r.receipt_id = m.receipt_id
		WHERE t.org_id = $1 AND t.txn_date BETWEEN $2 AND $3
		UNION ALL
		SELECT 'cash', r.receipt_date, r.vendor, r.vendor, -r.total, r.category, r.source, '', r.receipt_id
		FROM receipts r
		WHERE r.org_id = $1 AND r.receipt_date BETWEEN $2 AND $3
			AND lower(r.source) = 'cash'
			AND NOT EXISTS (SELECT 1 FROM matches m WHERE m.org_id = r.org_id AND m.receipt_id = r.receipt_id)
		ORDER BY 2
	`, orgID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query ledger export: %w", err)
	}
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.EntryType, &e.Date, &e.Description, &e.Vendor, &e.Amount, &e.Category, &e.Source, &e.TransactionID, &e.ReceiptID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
