package ledger

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/api/constants"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

// CreateManualMatch links a transaction to a receipt by hand. Manual matches
// carry full confidence and win over any later auto attempt because a
// transaction holds at most one match.
func CreateManualMatch(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID         string `json:"org_id"`
			TransactionID string `json:"transaction_id"`
			ReceiptID     string `json:"receipt_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		if body.TransactionID == "" || body.ReceiptID == "" {
			http.Error(w, constants.ErrTxnIDRequired, http.StatusBadRequest)
			return
		}
		txn, err := st.GetTransaction(r.Context(), body.OrgID, body.TransactionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, constants.ErrMatchNotFound, http.StatusNotFound)
				return
			}
			respondError(w, err.Error())
			return
		}
		m := &store.Match{
			OrgID:         body.OrgID,
			TransactionID: body.TransactionID,
			ReceiptID:     body.ReceiptID,
			Method:        "manual",
			Confidence:    1.0,
			MatchedAmount: txn.Amount,
		}
		if err := st.InsertMatch(r.Context(), m); err != nil {
			if errors.Is(err, store.ErrAlreadyMatched) {
				http.Error(w, constants.ErrTransactionMatched, http.StatusConflict)
				return
			}
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{
			"success":  true,
			"match_id": m.ID,
		})
	})
}

func DeleteMatch(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID   string `json:"org_id"`
			MatchID string `json:"match_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" || body.MatchID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		if err := st.DeleteMatch(r.Context(), body.OrgID, body.MatchID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, constants.ErrMatchNotFound, http.StatusNotFound)
				return
			}
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{"success": true})
	})
}

func ListMatches(st store.Store) http.Handler {
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
		matches, err := st.ListMatches(r.Context(), body.OrgID)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		out := make([]map[string]interface{}, 0, len(matches))
		for _, m := range matches {
			out = append(out, map[string]interface{}{
				"match_id":       m.ID,
				"transaction_id": m.TransactionID,
				"receipt_id":     m.ReceiptID,
				"method":         m.Method,
				"confidence":     m.Confidence,
				"matched_amount": m.MatchedAmount.StringFixed(2),
			})
		}
		respondJSON(w, map[string]interface{}{
			"success": true,
			"matches": out,
		})
	})
}
