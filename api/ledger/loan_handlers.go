package ledger

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/api/constants"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

func loanPayload(l store.LoanLedger) map[string]interface{} {
	return map[string]interface{}{
		"loan_id":             l.LoanID,
		"principal":           l.Principal.StringFixed(2),
		"outstanding_balance": l.OutstandingBalance.StringFixed(2),
		"interest_paid":       l.InterestPaid.StringFixed(2),
		"total_repayments":    l.TotalRepayments.StringFixed(2),
		"status":              l.Status,
		"updated_at":          l.UpdatedAt.Format(constants.DateTimeFormat),
	}
}

func GetLoanLedger(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID  string `json:"org_id"`
			LoanID string `json:"loan_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" || body.LoanID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		l, err := st.GetLoanLedger(r.Context(), body.OrgID, body.LoanID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, constants.ErrLoanNotFound, http.StatusNotFound)
				return
			}
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{
			"success": true,
			"loan":    loanPayload(*l),
		})
	})
}

func ListLoanLedgers(st store.Store) http.Handler {
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
		loans, err := st.ListLoanLedgers(r.Context(), body.OrgID)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		out := make([]map[string]interface{}, 0, len(loans))
		for _, l := range loans {
			out = append(out, loanPayload(l))
		}
		respondJSON(w, map[string]interface{}{
			"success": true,
			"loans":   out,
		})
	})
}
