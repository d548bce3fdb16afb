package importer

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// ErrMalformedInput rejects a whole submission: no header row, or a header
// with no data rows. Everything less severe is handled per row.
var ErrMalformedInput = errors.New("malformed input: need a header row and at least one data row")

// Row is one data line keyed by trimmed header name. Line is the 1-based
// position within the submission, used in per-row error strings.
type Row struct {
	Line   int
	Values map[string]string
}

// First returns the value of the first alias with a non-empty value.
func (r Row) First(aliases ...string) string {
	for _, a := range aliases {
		if v, ok := r.Values[a]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Has reports whether any alias is present as a header, regardless of value.
func (r Row) Has(aliases ...string) bool {
	for _, a := range aliases {
		if _, ok := r.Values[a]; ok {
			return true
		}
	}
	return false
}

// NormalizeText parses raw delimited text into header-keyed rows. Quoted
// fields containing the delimiter and doubled-quote escapes are handled by
// the reader; every field is trimmed. The first non-empty line is the
// header.
func NormalizeText(raw string) ([]Row, error) {
	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ErrMalformedInput
		}
		if allEmpty(rec) {
			continue
		}
		records = append(records, rec)
	}
	return NormalizeRecords(records)
}

// NormalizeRecords keys pre-split records (CSV, XLSX or XLS rows) by their
// header line.
func NormalizeRecords(records [][]string) ([]Row, error) {
	var nonEmpty [][]string
	for _, rec := range records {
		if !allEmpty(rec) {
			nonEmpty = append(nonEmpty, rec)
		}
	}
	if len(nonEmpty) < 2 {
		return nil, ErrMalformedInput
	}
	header := nonEmpty[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	rows := make([]Row, 0, len(nonEmpty)-1)
	for i, rec := range nonEmpty[1:] {
		values := make(map[string]string, len(header))
		for j, h := range header {
			if h == "" {
				continue
			}
			if j < len(rec) {
				values[h] = strings.TrimSpace(rec[j])
			} else {
				values[h] = ""
			}
		}
		rows = append(rows, Row{Line: i + 1, Values: values})
	}
	return rows, nil
}

func allEmpty(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
