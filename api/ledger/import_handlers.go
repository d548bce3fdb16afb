package ledger

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/api/constants"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/archive"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/importer"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

// ImportBankCSV ingests a generic bank statement submitted as raw CSV text.
func ImportBankCSV(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID       string `json:"org_id"`
			CSVContent  string `json:"csv_content"`
			AccountID   string `json:"account_id,omitempty"`
			SourceLabel string `json:"source_label,omitempty"`
			AccountName string `json:"account_name,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.CSVContent) == "" {
			http.Error(w, constants.ErrEmptyCSV, http.StatusBadRequest)
			return
		}
		rows, err := importer.NormalizeText(body.CSVContent)
		if err != nil {
			http.Error(w, constants.ErrMalformedCSV, http.StatusBadRequest)
			return
		}
		eng := importer.NewEngine(st)
		rep, err := eng.ImportBank(r.Context(), importer.BankImportRequest{
			OrgID:       body.OrgID,
			CSVContent:  body.CSVContent,
			AccountID:   body.AccountID,
			SourceLabel: body.SourceLabel,
			AccountName: body.AccountName,
		}, rows)
		if err != nil {
			respondError(w, err.Error())
			return
		}
		respondReport(w, rep)
	})
}

// ImportSquareCSV ingests one of the three Square report types.
func ImportSquareCSV(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID      string `json:"org_id"`
			ReportType string `json:"report_type"`
			CSVContent string `json:"csv_content"`
			AccountID  string `json:"account_id,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if body.OrgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.CSVContent) == "" {
			http.Error(w, constants.ErrEmptyCSV, http.StatusBadRequest)
			return
		}
		rows, err := importer.NormalizeText(body.CSVContent)
		if err != nil {
			http.Error(w, constants.ErrMalformedCSV, http.StatusBadRequest)
			return
		}
		eng := importer.NewEngine(st)
		rep, err := eng.ImportSquare(r.Context(), importer.SquareImportRequest{
			OrgID:      body.OrgID,
			CSVContent: body.CSVContent,
			AccountID:  body.AccountID,
			ReportType: body.ReportType,
		}, rows)
		if errors.Is(err, importer.ErrUnknownReportType) {
			http.Error(w, constants.ErrUnknownReportType, http.StatusBadRequest)
			return
		}
		if err != nil {
			respondError(w, err.Error())
			return
		}
		respondReport(w, rep)
	})
}

// ImportStatementFile ingests a multipart upload: csv, xlsx or legacy xls.
// The original file is archived to S3 when archival is enabled; a failed
// archive never fails the import.
func ImportStatementFile(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, constants.ErrInvalidRequestBody, http.StatusBadRequest)
			return
		}
		orgID := r.FormValue("org_id")
		if orgID == "" {
			http.Error(w, constants.ErrOrgIDRequired, http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, constants.ErrFileRequired, http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, constants.ErrInvalidRequestBody, http.StatusBadRequest)
			return
		}

		records, err := parseStatementFile(header.Filename, data)
		if err != nil {
			http.Error(w, constants.ErrUnsupportedFile, http.StatusBadRequest)
			return
		}
		rows, err := importer.NormalizeRecords(records)
		if err != nil {
			http.Error(w, constants.ErrMalformedCSV, http.StatusBadRequest)
			return
		}

		eng := importer.NewEngine(st)
		var rep *importer.Report
		reportType := r.FormValue("report_type")
		if reportType != "" {
			rep, err = eng.ImportSquare(r.Context(), importer.SquareImportRequest{
				OrgID:      orgID,
				AccountID:  r.FormValue("account_id"),
				ReportType: reportType,
			}, rows)
			if errors.Is(err, importer.ErrUnknownReportType) {
				http.Error(w, constants.ErrUnknownReportType, http.StatusBadRequest)
				return
			}
		} else {
			rep, err = eng.ImportBank(r.Context(), importer.BankImportRequest{
				OrgID:       orgID,
				AccountID:   r.FormValue("account_id"),
				SourceLabel: r.FormValue("source_label"),
				AccountName: r.FormValue("account_name"),
			}, rows)
		}
		if err != nil {
			respondError(w, err.Error())
			return
		}

		var archiveKey string
		if archive.Enabled() {
			key := archive.Key(orgID, header.Filename, data)
			if stored, err := archive.StoreOriginal(r.Context(), key, data); err != nil {
				log.Printf("statement archive failed for org %s: %v", orgID, err)
			} else {
				archiveKey = stored
			}
		}

		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":     true,
			"imported":    rep.Imported,
			"duplicates":  rep.Duplicates,
			"skipped":     rep.Skipped,
			"errors":      rep.DisplayErrors(),
			"error_count": len(rep.Errors),
			"archive_key": archiveKey,
		})
	})
}

// parseStatementFile splits the upload into records. Excel files are tried
// first by extension, then the content falls back to CSV.
func parseStatementFile(filename string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return parseXLSX(data)
	case ".xls":
		return parseXLS(data)
	default:
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		r.TrimLeadingSpace = true
		return r.ReadAll()
	}
}

func parseXLSX(data []byte) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer xl.Close()
	return xl.GetRows(xl.GetSheetName(0))
}

func parseXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("xls has no sheets")
	}
	var out [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		var cells []string
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		out = append(out, cells)
	}
	return out, nil
}

func respondReport(w http.ResponseWriter, rep *importer.Report) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"imported":    rep.Imported,
		"duplicates":  rep.Duplicates,
		"skipped":     rep.Skipped,
		"errors":      rep.DisplayErrors(),
		"error_count": len(rep.Errors),
	})
}
