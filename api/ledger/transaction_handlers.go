package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/api/constants"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/jobs"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/rules"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

func ListTransactions(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID             string `json:"org_id"`
			From              string `json:"from,omitempty"`
			To                string `json:"to,omitempty"`
			UncategorizedOnly bool   `json:"uncategorized_only,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		from, to := dateRange(body.From, body.To)
		var txns []store.Transaction
		var err error
		if body.UncategorizedOnly {
			txns, err = st.ListUncategorized(r.Context(), body.OrgID, from, to)
		} else {
			txns, err = st.ListTransactions(r.Context(), body.OrgID, from, to)
		}
		if err != nil {
			respondError(w, err.Error())
			return
		}
		out := make([]map[string]interface{}, 0, len(txns))
		for _, t := range txns {
			out = append(out, map[string]interface{}{
				"transaction_id": t.ID,
				"date":           t.Date.Format(constants.DateFormat),
				"description":    t.Description,
				"vendor_clean":   t.VendorClean,
				"amount":         t.Amount.StringFixed(2),
				"direction":      string(t.Direction),
				"category":       t.Category,
				"institution":    t.Institution,
				"source_account": t.SourceAccount,
				"imported_via":   t.ImportedVia,
				"external_id":    t.ExternalID,
			})
		}
		respondJSON(w, map[string]interface{}{
			"success":      true,
			"transactions": out,
		})
	})
}

// SetTransactionCategory assigns a category by hand. The assignment goes
// through the same clamp as rule output: a name outside the org's active set
// is stored as Uncategorized.
func SetTransactionCategory(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID         string `json:"org_id"`
			TransactionID string `json:"transaction_id"`
			Category      string `json:"category"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		if body.TransactionID == "" {
			http.Error(w, constants.ErrTxnIDRequired, http.StatusBadRequest)
			return
		}
		eng, err := rules.Load(r.Context(), st, body.OrgID)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		category := eng.Clamp(body.Category)
		if err := st.UpdateTransactionCategory(r.Context(), body.OrgID, body.TransactionID, category); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, constants.ErrTxnIDRequired, http.StatusNotFound)
				return
			}
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{
			"success":  true,
			"category": category,
		})
	})
}

// CategorizeNow triggers the bulk re-categorization sweep for one org
// without waiting for the nightly schedule.
func CategorizeNow(st store.Store, sqlDB *sql.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID string `json:"org_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		processor := jobs.NewProcessor(st, sqlDB)
		n, err := processor.RunOrg(r.Context(), body.OrgID)
		if err != nil {
			respondError(w, "Categorization job failed: "+err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{
			"success":     true,
			"categorized": n,
		})
	})
}
