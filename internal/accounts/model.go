package accounts

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/ledger"
)

// AccountNumberPrefix starts every account number this bank issues.
const AccountNumberPrefix = "62"

const numberAttempts = 10

var (
	ErrNoAccount            = errors.New("no account found")
	ErrUnknownKind          = errors.New("account kind must be SAVINGS or CURRENT")
	ErrNumberSpaceExhausted = errors.New("could not allocate a unique account number")
	ErrNoLimits             = errors.New("provide at least one limit")
	ErrDailyLimitRange      = errors.New("daily limit must be between ₹1,000 and ₹2,00,000")
	ErrMonthlyLimitRange    = errors.New("monthly limit must be between ₹1,000 and ₹10,00,000")
)

var (
	minLimit        = decimal.NewFromInt(1_000)
	maxDailyLimit   = decimal.NewFromInt(200_000)
	maxMonthlyLimit = decimal.NewFromInt(1_000_000)
)

// LimitsInput carries the limits to change. Nil fields are left as is.
type LimitsInput struct {
	Daily   *decimal.Decimal
	Monthly *decimal.Decimal
}

type accountResponse struct {
	ID                 string          `json:"id"`
	Number             string          `json:"account_number"`
	Kind               string          `json:"account_type"`
	Balance            decimal.Decimal `json:"balance"`
	MinimumBalance     decimal.Decimal `json:"minimum_balance"`
	DailyLimit         decimal.Decimal `json:"daily_limit"`
	MonthlyLimit       decimal.Decimal `json:"monthly_limit"`
	DailyTransferred   decimal.Decimal `json:"daily_transferred"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	Frozen             bool            `json:"is_frozen"`
	LastInterestCredit *time.Time      `json:"last_interest_credit,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:                 a.ID,
		Number:             a.Number,
		Kind:               string(a.Kind),
		Balance:            a.Balance,
		MinimumBalance:     a.MinimumBalance,
		DailyLimit:         a.DailyLimit,
		MonthlyLimit:       a.MonthlyLimit,
		DailyTransferred:   a.DailyTransferred,
		InterestRate:       a.InterestRate,
		Frozen:             a.Frozen,
		LastInterestCredit: a.LastInterestCredit,
		CreatedAt:          a.CreatedAt,
	}
}

// TransactionResponse is the JSON view of a ledger transaction.
type TransactionResponse struct {
	ID              string          `json:"id"`
	Reference       string          `json:"reference"`
	Amount          decimal.Decimal `json:"amount"`
	Kind            string          `json:"type"`
	Status          string          `json:"status"`
	SourceAccountID string          `json:"source_account_id,omitempty"`
	TargetAccountID string          `json:"target_account_id,omitempty"`
	Description     string          `json:"description,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ToTransactionResponse converts a ledger transaction for the API.
func ToTransactionResponse(tx ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              tx.ID,
		Reference:       tx.Reference,
		Amount:          tx.Amount,
		Kind:            string(tx.Kind),
		Status:          tx.Status,
		SourceAccountID: tx.SourceAccountID,
		TargetAccountID: tx.TargetAccountID,
		Description:     tx.Description,
		CreatedAt:       tx.CreatedAt,
	}
}
