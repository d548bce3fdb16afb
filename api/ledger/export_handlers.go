package ledger

import (
	"encoding/json"
	"net/http"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/api/constants"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

// ExportLedger returns the unified signed-amount view: matched pairs,
// unmatched bank and card transactions, and cash receipts that never hit a
// feed.
func ExportLedger(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID string `json:"org_id"`
			From  string `json:"from,omitempty"`
			To    string `json:"to,omitempty"`
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
		entries, err := st.LedgerExport(r.Context(), body.OrgID, from, to)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		out := make([]map[string]interface{}, 0, len(entries))
		for _, e := range entries {
			out = append(out, map[string]interface{}{
				"entry_type":     e.EntryType,
				"date":           e.Date.Format(constants.DateFormat),
				"description":    e.Description,
				"vendor":         e.Vendor,
				"amount":         e.Amount.StringFixed(2),
				"category":       e.Category,
				"source":         e.Source,
				"transaction_id": e.TransactionID,
				"receipt_id":     e.ReceiptID,
			})
		}
		respondJSON(w, map[string]interface{}{
			"success": true,
			"entries": out,
		})
	})
}
