// Package jobs runs the scheduled background work: the nightly bulk
// re-categorization sweep over transactions that never matched a rule at
// import time.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/config"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/rules"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

// Processor re-runs the rule engine over uncategorized transactions. When a
// direct SQL connection is present the assignments of a whole org are applied
// in one bulk UPDATE; without it they go through the store in concurrent
// groups. Transactions that already carry a category are never touched, so
// manual assignments survive every sweep.
type Processor struct {
	Store     store.Store
	SQL       *sql.DB // optional bulk-update fast path
	GroupSize int
}

func NewProcessor(st store.Store, sqlDB *sql.DB) *Processor {
	return &Processor{Store: st, SQL: sqlDB, GroupSize: config.RecategorizeGroupSize}
}

// Run sweeps every org. Per-org failures are logged and do not stop the
// remaining orgs.
func (p *Processor) Run(ctx context.Context) error {
	orgs, err := p.Store.OrgIDs(ctx)
	if err != nil {
		return fmt.Errorf("list orgs: %w", err)
	}
	start := time.Now()
	var total int
	for _, orgID := range orgs {
		n, err := p.RunOrg(ctx, orgID)
		if err != nil {
			audit(fmt.Sprintf("re-categorization failed for org %s: %v", orgID, err))
			continue
		}
		total += n
	}
	audit(fmt.Sprintf("re-categorization swept %d orgs, %d transactions categorized in %v",
		len(orgs), total, time.Since(start).Round(time.Millisecond)))
	return nil
}

// RunOrg loads the org's rules once, evaluates every uncategorized
// transaction and applies the assignments that produced a real category.
// Returns how many transactions were updated.
func (p *Processor) RunOrg(ctx context.Context, orgID string) (int, error) {
	eng, err := rules.Load(ctx, p.Store, orgID)
	if err != nil {
		return 0, fmt.Errorf("load rules: %w", err)
	}
	txns, err := p.Store.ListUncategorized(ctx, orgID, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("list uncategorized: %w", err)
	}
	var updates []store.CategoryUpdate
	for _, t := range txns {
		category := eng.Categorize(t.Description, t.VendorClean, t.Direction)
		if category == store.Uncategorized {
			continue
		}
		updates = append(updates, store.CategoryUpdate{TransactionID: t.ID, Category: category})
	}
	if len(updates) == 0 {
		return 0, nil
	}
	if p.SQL != nil {
		if err := p.bulkUpdate(ctx, orgID, updates); err == nil {
			return len(updates), nil
		} else {
			log.Printf("bulk category update failed for org %s, falling back to row updates: %v", orgID, err)
		}
	}
	if err := p.groupUpdate(ctx, orgID, updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}

// bulkUpdate applies all assignments of one org in a single statement by
// unnesting parallel arrays.
func (p *Processor) bulkUpdate(ctx context.Context, orgID string, updates []store.CategoryUpdate) error {
	ids := make([]string, len(updates))
	categories := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.TransactionID
		categories[i] = u.Category
	}
	_, err := p.SQL.ExecContext(ctx, `
		UPDATE transactions AS t
		SET category = u.category
		FROM (
			SELECT unnest($1::text[]) AS transaction_id, unnest($2::text[]) AS category
		) AS u
		WHERE t.transaction_id = u.transaction_id
		  AND t.org_id = $3
		  AND (t.category IS NULL OR t.category = '' OR t.category = $4)
	`, pq.Array(ids), pq.Array(categories), orgID, store.Uncategorized)
	return err
}

// groupUpdate pushes assignments through the store, GroupSize at a time.
func (p *Processor) groupUpdate(ctx context.Context, orgID string, updates []store.CategoryUpdate) error {
	size := p.GroupSize
	if size <= 0 {
		size = config.RecategorizeGroupSize
	}
	var firstErr error
	var mu sync.Mutex
	for start := 0; start < len(updates); start += size {
		end := start + size
		if end > len(updates) {
			end = len(updates)
		}
		var wg sync.WaitGroup
		for _, u := range updates[start:end] {
			wg.Add(1)
			go func(u store.CategoryUpdate) {
				defer wg.Done()
				if err := p.Store.UpdateTransactionCategory(ctx, orgID, u.TransactionID, u.Category); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}(u)
		}
		wg.Wait()
	}
	return firstErr
}
