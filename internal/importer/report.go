package importer

import (
	"fmt"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/config"
)

// Report aggregates per-row outcomes across one submission. Errors holds the
// full list; DisplayErrors caps what goes back to the caller.
type Report struct {
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors"`
}

// AddError records a per-row failure with enough context for triage.
func (rep *Report) AddError(line int, ref string, err error) {
	if ref != "" {
		rep.Errors = append(rep.Errors, fmt.Sprintf("row %d (%s): %v", line, ref, err))
		return
	}
	rep.Errors = append(rep.Errors, fmt.Sprintf("row %d: %v", line, err))
}

// DisplayErrors returns at most MaxReportErrors strings, never nil, so the
// JSON encoding is always an array.
func (rep *Report) DisplayErrors() []string {
	errs := rep.Errors
	if len(errs) > config.MaxReportErrors {
		errs = errs[:config.MaxReportErrors]
	}
	if errs == nil {
		errs = []string{}
	}
	return errs
}
