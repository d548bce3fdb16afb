// Package extract asks the receipt-vision service to read structured fields
// off a receipt image. Its output is collaborator input, never trusted: the
// caller clamps the suggested category against the org's allow-list before
// storing anything.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fields is what the vision service reads off a receipt image. Every field
// is optional; the review form pre-fills from whatever came back.
type Fields struct {
	Vendor   string          `json:"vendor"`
	Date     string          `json:"date"`
	Total    decimal.Decimal `json:"total"`
	Tax      decimal.Decimal `json:"tax"`
	Category string          `json:"category"`
	Source   string          `json:"source"`
	Notes    string          `json:"notes"`
}

// Hints narrows the extraction: the org's category names let the service
// suggest from the real set instead of free text.
type Hints struct {
	Categories []string `json:"categories,omitempty"`
}

// Extractor reads receipt fields from an image reference.
type Extractor interface {
	Extract(ctx context.Context, imageRef string, hints Hints) (*Fields, error)
}

// ErrNotConfigured is returned by the HTTP extractor when no service URL is
// set; handlers degrade to a blank review form.
var ErrNotConfigured = errors.New("receipt extraction service not configured")

// HTTPExtractor posts to the external vision service.
type HTTPExtractor struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPExtractor reads RECEIPT_EXTRACT_URL; an empty URL is allowed and
// makes every Extract call fail with ErrNotConfigured.
func NewHTTPExtractor() *HTTPExtractor {
	return &HTTPExtractor{
		BaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("RECEIPT_EXTRACT_URL")), "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, imageRef string, hints Hints) (*Fields, error) {
	if e.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	payload, err := json.Marshal(map[string]interface{}{
		"image_ref": imageRef,
		"hints":     hints,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/v1/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned %s", resp.Status)
	}
	var fields Fields
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	return &fields, nil
}
