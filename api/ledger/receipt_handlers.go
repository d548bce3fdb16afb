package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/api/constants"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/extract"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/importer"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/rules"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

type receiptBody struct {
	OrgID     string `json:"org_id"`
	ReceiptID string `json:"receipt_id,omitempty"`
	Vendor    string `json:"vendor"`
	Date      string `json:"date"`
	Total     string `json:"total"`
	Tax       string `json:"tax,omitempty"`
	Category  string `json:"category,omitempty"`
	Source    string `json:"source,omitempty"`
	ImageRef  string `json:"image_ref,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

func receiptFromBody(body receiptBody, eng *rules.Engine) (*store.Receipt, error) {
	total, err := decimal.NewFromString(body.Total)
	if err != nil {
		return nil, errors.New(constants.ErrInvalidTotal)
	}
	tax := decimal.Zero
	if body.Tax != "" {
		if tax, err = decimal.NewFromString(body.Tax); err != nil {
			tax = decimal.Zero
		}
	}
	category := body.Category
	if category != "" {
		category = eng.Clamp(category)
	}
	return &store.Receipt{
		ID:       body.ReceiptID,
		OrgID:    body.OrgID,
		Vendor:   body.Vendor,
		Date:     importer.ParseDate(body.Date, time.Now),
		Total:    total,
		Tax:      tax,
		Category: category,
		Source:   body.Source,
		ImageRef: body.ImageRef,
		Notes:    body.Notes,
	}, nil
}

func CreateReceipt(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body receiptBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		eng, err := rules.Load(r.Context(), st, body.OrgID)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		rec, err := receiptFromBody(body, eng)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec.ID = ""
		if err := st.InsertReceipt(r.Context(), rec); err != nil {
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{
			"success":    true,
			"receipt_id": rec.ID,
			"category":   rec.Category,
		})
	})
}

func UpdateReceipt(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body receiptBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		if body.ReceiptID == "" {
			http.Error(w, constants.ErrReceiptIDRequired, http.StatusBadRequest)
			return
		}
		eng, err := rules.Load(r.Context(), st, body.OrgID)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		rec, err := receiptFromBody(body, eng)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := st.UpdateReceipt(r.Context(), rec); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, constants.ErrReceiptNotFound, http.StatusNotFound)
				return
			}
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{"success": true})
	})
}

func DeleteReceipt(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID     string `json:"org_id"`
			ReceiptID string `json:"receipt_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" || body.ReceiptID == "" {
			http.Error(w, constants.ErrReceiptIDRequired, http.StatusBadRequest)
			return
		}
		if err := st.DeleteReceipt(r.Context(), body.OrgID, body.ReceiptID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, constants.ErrReceiptNotFound, http.StatusNotFound)
				return
			}
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{"success": true})
	})
}

func ListReceipts(st store.Store) http.Handler {
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
		receipts, err := st.ListReceipts(r.Context(), body.OrgID)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		out := make([]map[string]interface{}, 0, len(receipts))
		for _, rec := range receipts {
			out = append(out, map[string]interface{}{
				"receipt_id": rec.ID,
				"vendor":     rec.Vendor,
				"date":       rec.Date.Format(constants.DateFormat),
				"total":      rec.Total.StringFixed(2),
				"tax":        rec.Tax.StringFixed(2),
				"category":   rec.Category,
				"source":     rec.Source,
				"image_ref":  rec.ImageRef,
				"notes":      rec.Notes,
			})
		}
		respondJSON(w, map[string]interface{}{
			"success":  true,
			"receipts": out,
		})
	})
}

// ExtractReceiptFields runs the vision service over a receipt image and
// returns pre-fill values for the review form. The suggested category is
// clamped against the org's active set before it leaves this handler.
func ExtractReceiptFields(st store.Store, ex extract.Extractor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID    string `json:"org_id"`
			ImageRef string `json:"image_ref"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		eng, err := rules.Load(r.Context(), st, body.OrgID)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		categories, err := st.ActiveCategoryNames(r.Context(), body.OrgID)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		fields, err := ex.Extract(r.Context(), body.ImageRef, extract.Hints{Categories: categories})
		if errors.Is(err, extract.ErrNotConfigured) {
			respondJSON(w, map[string]interface{}{
				"success": true,
				"fields":  map[string]interface{}{},
			})
			return
		}
		if err != nil {
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{
			"success": true,
			"fields": map[string]interface{}{
				"vendor":   fields.Vendor,
				"date":     fields.Date,
				"total":    fields.Total.StringFixed(2),
				"tax":      fields.Tax.StringFixed(2),
				"category": eng.Clamp(fields.Category),
				"source":   fields.Source,
				"notes":    fields.Notes,
			},
		})
	})
}
