package ledger

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/extract"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/serviceiface"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

const defaultPort = 7143

// LedgerService hosts the reconciliation API: imports, receipts, matches,
// rules, loans and the ledger export.
type LedgerService struct {
	config map[string]interface{}
	store  store.Store
	sqlDB  *sql.DB
}

func NewLedgerService(cfg map[string]interface{}, st store.Store, sqlDB *sql.DB) serviceiface.Service {
	return &LedgerService{config: cfg, store: st, sqlDB: sqlDB}
}

func (s *LedgerService) Name() string {
	return "ledger"
}

func (s *LedgerService) Start() error {
	port := defaultPort
	if s.config != nil {
		switch v := s.config["port"].(type) {
		case int:
			if v > 0 {
				port = v
			}
		case float64:
			if v > 0 {
				port = int(v)
			}
		}
	}
	go StartLedgerService(s.store, s.sqlDB, port)
	return nil
}

func (s *LedgerService) Stop() error {
	return nil
}

// StartLedgerService binds every route and serves. It blocks; callers run it
// in a goroutine.
func StartLedgerService(st store.Store, sqlDB *sql.DB, port int) {
	extractor := extract.NewHTTPExtractor()

	r := mux.NewRouter()
	r.HandleFunc("/ledger/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Ledger Service is active"))
	}).Methods("GET")

	r.Handle("/ledger/import/bank", ImportBankCSV(st)).Methods("POST")
	r.Handle("/ledger/import/square", ImportSquareCSV(st)).Methods("POST")
	r.Handle("/ledger/import/upload", ImportStatementFile(st)).Methods("POST")

	r.Handle("/ledger/transactions", ListTransactions(st)).Methods("POST")
	r.Handle("/ledger/transactions/categorize", CategorizeNow(st, sqlDB)).Methods("POST")
	r.Handle("/ledger/transactions/set-category", SetTransactionCategory(st)).Methods("POST")

	r.Handle("/ledger/receipts", ListReceipts(st)).Methods("POST")
	r.Handle("/ledger/receipts/create", CreateReceipt(st)).Methods("POST")
	r.Handle("/ledger/receipts/update", UpdateReceipt(st)).Methods("POST")
	r.Handle("/ledger/receipts/delete", DeleteReceipt(st)).Methods("POST")
	r.Handle("/ledger/receipts/extract", ExtractReceiptFields(st, extractor)).Methods("POST")

	r.Handle("/ledger/matches", ListMatches(st)).Methods("POST")
	r.Handle("/ledger/matches/create", CreateManualMatch(st)).Methods("POST")
	r.Handle("/ledger/matches/delete", DeleteMatch(st)).Methods("POST")

	r.Handle("/ledger/rules/vendor", ListVendorRules(st)).Methods("POST")
	r.Handle("/ledger/rules/vendor/create", CreateVendorRule(st)).Methods("POST")
	r.Handle("/ledger/rules/vendor/delete", DeleteVendorRule(st)).Methods("POST")
	r.Handle("/ledger/rules/fallback", ListFallbackRules(st)).Methods("POST")
	r.Handle("/ledger/rules/fallback/create", CreateFallbackRule(st)).Methods("POST")
	r.Handle("/ledger/rules/fallback/delete", DeleteFallbackRule(st)).Methods("POST")
	r.Handle("/ledger/categories", ListCategories(st)).Methods("POST")
	r.Handle("/ledger/categories/create", CreateCategory(st)).Methods("POST")

	r.Handle("/ledger/loans", ListLoanLedgers(st)).Methods("POST")
	r.Handle("/ledger/loans/get", GetLoanLedger(st)).Methods("POST")

	r.Handle("/ledger/export", ExportLedger(st)).Methods("POST")

	addr := fmt.Sprintf(":%d", port)
	log.Printf("Ledger Service started on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Ledger Service failed: %v", err)
	}
}
