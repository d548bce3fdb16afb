package importer

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var amountJunk = regexp.MustCompile(`[$€£₹,\s]`)

// ParseAmount strips currency symbols and thousands separators and parses
// the remainder as a decimal. Empty or unparseable input yields zero, never
// an error. The sign of the result is whatever the source carried; callers
// combine the magnitude with an explicit direction.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = amountJunk.ReplaceAllString(s, "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if neg {
		d = d.Neg()
	}
	return d
}

// US-style month-first layouts lead; Square exports and most US bank CSVs
// render dates that way.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006", "1/2/2006", "01/02/06", "1/2/06",
	"2006/01/02",
	"01-02-2006", "1-2-2006",
	"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "02 Jan 2006",
	"02-Jan-2006", "02-Jan-06",
	"2006-01-02 15:04:05", "2006-01-02T15:04:05", time.RFC3339,
	"01/02/2006 15:04", "01/02/2006 15:04:05", "01/02/2006 03:04 PM",
}

// ParseDate coerces a loose date string to a UTC calendar date (no time
// component). Unparseable input falls back to today on the processing
// clock; ParseDate never fails.
func ParseDate(s string, now func() time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return DateOnly(t)
			}
		}
	}
	return DateOnly(now())
}

// ParseDateStrict is ParseDate without the today fallback; the second return
// is false when the string did not parse. Adapters use it to tell "row has a
// bad date" apart from "row has no date column".
func ParseDateStrict(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), true
		}
	}
	return time.Time{}, false
}

// DateOnly truncates to a UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var (
	vendorPrefix = regexp.MustCompile(`(?i)^(sq \*|sqc\*|tst\* ?|pos |debit card |ach |paypal \*)`)
	vendorNoise  = regexp.MustCompile(`\s{2,}|[#*]\s*\d+$|\s+\d{4,}$`)
)

// CleanVendor derives the optional cleaned-vendor text from a raw
// description: processor prefixes and trailing store numbers dropped,
// whitespace collapsed.
func CleanVendor(description string) string {
	v := strings.TrimSpace(description)
	v = vendorPrefix.ReplaceAllString(v, "")
	v = vendorNoise.ReplaceAllString(v, " ")
	v = strings.Join(strings.Fields(v), " ")
	return strings.TrimSpace(v)
}
