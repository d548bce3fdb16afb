package ledger

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/api/constants"
)

func respondJSON(w http.ResponseWriter, payload map[string]interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, msg string) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": msg,
	})
}

// dateRange parses optional from/to strings in YYYY-MM-DD form. Empty or
// unparseable bounds are open.
func dateRange(fromStr, toStr string) (from, to *time.Time) {
	if t, err := time.Parse(constants.DateFormat, strings.TrimSpace(fromStr)); err == nil {
		from = &t
	}
	if t, err := time.Parse(constants.DateFormat, strings.TrimSpace(toStr)); err == nil {
		// Inclusive upper bound covers the whole day.
		t = t.Add(24*time.Hour - time.Nanosecond)
		to = &t
	}
	return from, to
}
