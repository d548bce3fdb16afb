package ledger

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/api/constants"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

func CreateVendorRule(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID           string `json:"org_id"`
			VendorPattern   string `json:"vendor_pattern"`
			Category        string `json:"category"`
			DirectionFilter string `json:"direction_filter,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		if body.VendorPattern == "" {
			http.Error(w, constants.ErrPatternRequired, http.StatusBadRequest)
			return
		}
		if body.Category == "" {
			http.Error(w, constants.ErrCategoryRequired, http.StatusBadRequest)
			return
		}
		rule := &store.VendorRule{
			OrgID:           body.OrgID,
			VendorPattern:   body.VendorPattern,
			Category:        body.Category,
			DirectionFilter: store.Direction(body.DirectionFilter),
		}
		if err := st.InsertVendorRule(r.Context(), rule); err != nil {
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{
			"success": true,
			"rule_id": rule.ID,
		})
	})
}

func DeleteVendorRule(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID  string `json:"org_id"`
			RuleID string `json:"rule_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" || body.RuleID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		if err := st.DeleteVendorRule(r.Context(), body.OrgID, body.RuleID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, constants.ErrRuleNotFound, http.StatusNotFound)
				return
			}
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{"success": true})
	})
}

func ListVendorRules(st store.Store) http.Handler {
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
		rulesList, err := st.ListVendorRules(r.Context(), body.OrgID)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		out := make([]map[string]interface{}, 0, len(rulesList))
		for _, rule := range rulesList {
			out = append(out, map[string]interface{}{
				"rule_id":          rule.ID,
				"vendor_pattern":   rule.VendorPattern,
				"category":         rule.Category,
				"direction_filter": string(rule.DirectionFilter),
				"position":         rule.Position,
			})
		}
		respondJSON(w, map[string]interface{}{
			"success": true,
			"rules":   out,
		})
	})
}

func CreateFallbackRule(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID           string `json:"org_id"`
			MatchPattern    string `json:"match_pattern"`
			DefaultCategory string `json:"default_category"`
			Enabled         *bool  `json:"enabled,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		if body.MatchPattern == "" {
			http.Error(w, constants.ErrPatternRequired, http.StatusBadRequest)
			return
		}
		if body.DefaultCategory == "" {
			http.Error(w, constants.ErrCategoryRequired, http.StatusBadRequest)
			return
		}
		enabled := true
		if body.Enabled != nil {
			enabled = *body.Enabled
		}
		rule := &store.FallbackRule{
			OrgID:           body.OrgID,
			MatchPattern:    body.MatchPattern,
			DefaultCategory: body.DefaultCategory,
			Enabled:         enabled,
		}
		if err := st.InsertFallbackRule(r.Context(), rule); err != nil {
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{
			"success": true,
			"rule_id": rule.ID,
		})
	})
}

func DeleteFallbackRule(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID  string `json:"org_id"`
			RuleID string `json:"rule_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" || body.RuleID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		if err := st.DeleteFallbackRule(r.Context(), body.OrgID, body.RuleID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, constants.ErrRuleNotFound, http.StatusNotFound)
				return
			}
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{"success": true})
	})
}

func ListFallbackRules(st store.Store) http.Handler {
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
		rulesList, err := st.ListFallbackRules(r.Context(), body.OrgID)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		out := make([]map[string]interface{}, 0, len(rulesList))
		for _, rule := range rulesList {
			out = append(out, map[string]interface{}{
				"rule_id":          rule.ID,
				"match_pattern":    rule.MatchPattern,
				"default_category": rule.DefaultCategory,
				"enabled":          rule.Enabled,
				"position":         rule.Position,
			})
		}
		respondJSON(w, map[string]interface{}{
			"success": true,
			"rules":   out,
		})
	})
}

func CreateCategory(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID     string `json:"org_id"`
			Name      string `json:"name"`
			SortOrder int    `json:"sort_order,omitempty"`
			Active    *bool  `json:"active,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		if body.Name == "" {
			http.Error(w, constants.ErrCategoryRequired, http.StatusBadRequest)
			return
		}
		active := true
		if body.Active != nil {
			active = *body.Active
		}
		cat := &store.OrgCategory{
			OrgID:     body.OrgID,
			Name:      body.Name,
			SortOrder: body.SortOrder,
			Active:    active,
		}
		if err := st.InsertCategory(r.Context(), cat); err != nil {
			respondError(w, err.Error())
			return
		}
		respondJSON(w, map[string]interface{}{
			"success":     true,
			"category_id": cat.ID,
		})
	})
}

func ListCategories(st store.Store) http.Handler {
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
		categories, err := st.ListCategories(r.Context(), body.OrgID)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		out := make([]map[string]interface{}, 0, len(categories))
		for _, c := range categories {
			out = append(out, map[string]interface{}{
				"category_id": c.ID,
				"name":        c.Name,
				"sort_order":  c.SortOrder,
				"active":      c.Active,
			})
		}
		respondJSON(w, map[string]interface{}{
			"success":    true,
			"categories": out,
		})
	})
}
