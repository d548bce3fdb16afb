package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

// Adapter default categories. These are system labels stamped by the Square
// adapters, not rule-engine output, so they bypass the org clamp.
const (
	CategoryIncome        = "Income"
	CategoryBankFees      = "Bank Fees"
	CategoryTransfers     = "Transfers"
	CategoryLoanRepayment = "Loan Repayment"
)

// Imported-via tags identifying which adapter produced a record.
const (
	ViaBankCSV        = "bank_csv"
	ViaSquarePayments = "square_payments"
	ViaSquareDeposits = "square_deposits"
	ViaSquareLoan     = "square_loan"
)

// Header alias tables. First alias with a non-empty value wins.
var (
	dateAliases        = []string{"Date", "date", "Transaction Date", "Created At", "Posted Date"}
	descriptionAliases = []string{"Description", "description", "Details", "Memo", "Narrative"}
	amountAliases      = []string{"Amount", "amount", "Transaction Amount"}
	debitAliases       = []string{"Debit", "debit", "Withdrawal", "Money Out"}
	creditAliases      = []string{"Credit", "credit", "Deposit", "Money In"}
	referenceAliases   = []string{"Reference", "Reference Number", "Transaction ID", "FITID"}

	sqPaymentIDAliases = []string{"Payment ID", "Transaction ID", "Payment Id"}
	sqGrossAliases     = []string{"Gross Sales", "Gross Amount"}
	sqNetAliases       = []string{"Net Total", "Net Sales", "Net Amount"}
	sqFeeAliases       = []string{"Fees", "Fee Total", "Processing Fees"}
	sqDescAliases      = []string{"Description", "Details", "Notes"}

	sqTransferIDAliases = []string{"Transfer ID", "Deposit ID", "Payout ID"}
	sqDepositAmtAliases = []string{"Net Amount", "Amount", "Total"}

	sqLoanIDAliases      = []string{"Loan ID", "Loan Id"}
	sqRepaymentIDAliases = []string{"Repayment ID", "Payment ID"}
	sqRepaymentAliases   = []string{"Repayment Amount", "Payment Amount"}
	sqInterestAliases    = []string{"Interest", "Interest Amount"}
	sqPrincipalAliases   = []string{"Principal", "Principal Amount"}
	sqBalanceAliases     = []string{"Outstanding Balance", "Balance", "Remaining Balance"}
)

// Typed adapter inputs. Each source row is validated against its alias table
// before coercion so malformed headers fail per field instead of silently
// producing zeroed records.
type BankRow struct {
	Date        string
	Description string
	Amount      string
	Debit       string
	Credit      string
	Reference   string
}

type SquarePaymentsRow struct {
	Date        string
	PaymentID   string
	GrossSales  string
	NetTotal    string
	Fees        string
	Description string
}

type SquareDepositsRow struct {
	Date       string
	TransferID string
	NetAmount  string
}

type SquareLoanRow struct {
	Date        string
	LoanID      string
	RepaymentID string
	Repayment   string
	Interest    string
	Principal   string
	Balance     string
}

func bankRowFrom(r Row) BankRow {
	return BankRow{
		Date:        r.First(dateAliases...),
		Description: r.First(descriptionAliases...),
		Amount:      r.First(amountAliases...),
		Debit:       r.First(debitAliases...),
		Credit:      r.First(creditAliases...),
		Reference:   r.First(referenceAliases...),
	}
}

func squarePaymentsRowFrom(r Row) SquarePaymentsRow {
	return SquarePaymentsRow{
		Date:        r.First(dateAliases...),
		PaymentID:   r.First(sqPaymentIDAliases...),
		GrossSales:  r.First(sqGrossAliases...),
		NetTotal:    r.First(sqNetAliases...),
		Fees:        r.First(sqFeeAliases...),
		Description: r.First(sqDescAliases...),
	}
}

func squareDepositsRowFrom(r Row) SquareDepositsRow {
	return SquareDepositsRow{
		Date:       r.First(dateAliases...),
		TransferID: r.First(sqTransferIDAliases...),
		NetAmount:  r.First(sqDepositAmtAliases...),
	}
}

func squareLoanRowFrom(r Row) SquareLoanRow {
	return SquareLoanRow{
		Date:        r.First(dateAliases...),
		LoanID:      r.First(sqLoanIDAliases...),
		RepaymentID: r.First(sqRepaymentIDAliases...),
		Repayment:   r.First(sqRepaymentAliases...),
		Interest:    r.First(sqInterestAliases...),
		Principal:   r.First(sqPrincipalAliases...),
		Balance:     r.First(sqBalanceAliases...),
	}
}

// DeriveTxnHash builds the dedup key for rows whose source assigns no id.
// It mirrors the identity the uniqueness constraint protects: org, date,
// normalized description, magnitude and direction.
func DeriveTxnHash(orgID string, date time.Time, description string, amount decimal.Decimal, dir store.Direction) string {
	key := fmt.Sprintf("%s|%s|%s|%s|%s",
		orgID,
		date.Format("2006-01-02"),
		strings.ToLower(strings.TrimSpace(description)),
		amount.StringFixed(2),
		dir,
	)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
