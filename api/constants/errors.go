package constants

// Import errors
const (
	ErrEmptyCSV          = "csv_content is required"
	ErrMalformedCSV      = "csv must have a header row and at least one data row"
	ErrUnknownReportType = "report_type must be payments, deposits or loan"
	ErrFileRequired      = "file is required"
	ErrUnsupportedFile   = "unsupported file type: expected csv, xlsx or xls"
)

// Receipt errors
const (
	ErrReceiptNotFound   = "Receipt not found"
	ErrReceiptIDRequired = "receipt_id required"
	ErrInvalidTotal      = "total must be a valid amount"
)

// Match errors
const (
	ErrMatchNotFound      = "Match not found"
	ErrTransactionMatched = "Transaction already has a match"
	ErrTxnIDRequired      = "transaction_id required"
)

// Rule and category errors
const (
	ErrRuleNotFound     = "Rule not found"
	ErrPatternRequired  = "pattern required"
	ErrCategoryRequired = "category required"
)

// Loan errors
const (
	ErrLoanNotFound = "Loan ledger not found"
)
