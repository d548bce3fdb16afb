// Package rules is the single evaluation entry point for transaction
// categorization. Every path that assigns a category (import, bulk job,
// AI-assisted receipt entry) goes through Engine so the ordering and
// clamping contract has exactly one implementation.
package rules

import (
	"context"
	"regexp"
	"strings"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

// SalesIncome is returned for credit transactions carrying the Square
// marker, ahead of any stored rule.
const SalesIncome = "Sales Income"

var squareMarker = regexp.MustCompile(`(?i)square`)

type vendorRule struct {
	re       *regexp.Regexp // nil when the stored pattern does not compile
	category string
	filter   store.Direction
}

type fallbackRule struct {
	re       *regexp.Regexp
	category string
}

// Engine evaluates an org's ordered rule set. Build one per batch with
// NewEngine; compilation happens once and invalid patterns are permanently
// non-matching for the Engine's lifetime.
type Engine struct {
	vendor   []vendorRule
	fallback []fallbackRule
	active   map[string]struct{}
}

// NewEngine compiles the org's rules and category allow-list. A rule whose
// pattern fails to compile is kept as a never-matching slot rather than
// surfaced as an error; rule authoring mistakes must not abort imports.
func NewEngine(vendor []store.VendorRule, fallback []store.FallbackRule, activeCategories []string) *Engine {
	e := &Engine{active: make(map[string]struct{}, len(activeCategories))}
	for _, name := range activeCategories {
		e.active[name] = struct{}{}
	}
	for _, r := range vendor {
		e.vendor = append(e.vendor, vendorRule{
			re:       compileInsensitive(r.VendorPattern),
			category: r.Category,
			filter:   r.DirectionFilter,
		})
	}
	for _, r := range fallback {
		if !r.Enabled {
			continue
		}
		e.fallback = append(e.fallback, fallbackRule{
			re:       compileInsensitive(r.MatchPattern),
			category: r.DefaultCategory,
		})
	}
	return e
}

// Load builds an Engine from the org's stored rules and active categories.
func Load(ctx context.Context, st store.Store, orgID string) (*Engine, error) {
	vendor, err := st.ListVendorRules(ctx, orgID)
	if err != nil {
		return nil, err
	}
	fallback, err := st.ListFallbackRules(ctx, orgID)
	if err != nil {
		return nil, err
	}
	active, err := st.ActiveCategoryNames(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return NewEngine(vendor, fallback, active), nil
}

func compileInsensitive(pattern string) *regexp.Regexp {
	if strings.TrimSpace(pattern) == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil
	}
	return re
}

// Categorize returns one category name guaranteed to be a member of the
// org's active set or "Uncategorized". First match wins:
//  1. credit + square marker in the description
//  2. vendor rules in stored order (description or cleaned vendor,
//     direction filter honored)
//  3. enabled fallback rules in stored order
//  4. "Uncategorized"
func (e *Engine) Categorize(description, vendorClean string, direction store.Direction) string {
	if direction == store.DirectionCredit && squareMarker.MatchString(description) {
		return e.Clamp(SalesIncome)
	}
	for _, r := range e.vendor {
		if r.re == nil || r.category == "" {
			continue
		}
		if r.filter != "" && r.filter != direction {
			continue
		}
		if r.re.MatchString(description) || (vendorClean != "" && r.re.MatchString(vendorClean)) {
			return e.Clamp(r.category)
		}
	}
	for _, r := range e.fallback {
		if r.re == nil || r.category == "" {
			continue
		}
		if r.re.MatchString(description) || (vendorClean != "" && r.re.MatchString(vendorClean)) {
			return e.Clamp(r.category)
		}
	}
	return store.Uncategorized
}

// Clamp forces any category that is not an exact member of the org's active
// set (plus the literal "Uncategorized") to "Uncategorized". Applied to rule
// output and to untrusted collaborator output alike.
func (e *Engine) Clamp(category string) string {
	if category == store.Uncategorized {
		return category
	}
	if _, ok := e.active[category]; ok {
		return category
	}
	return store.Uncategorized
}
