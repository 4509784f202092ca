package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Terms are the limits and rate an account kind is opened with.
type Terms struct {
	MinimumBalance decimal.Decimal
	DailyLimit     decimal.Decimal
	MonthlyLimit   decimal.Decimal
	InterestRate   decimal.Decimal
}

// TermsFor returns the opening terms of kind and whether kind is known.
func TermsFor(kind AccountKind) (Terms, bool) {
	switch kind {
	case AccountKindSavings:
		return Terms{
			MinimumBalance: decimal.NewFromInt(1_000),
			DailyLimit:     decimal.NewFromInt(50_000),
			MonthlyLimit:   decimal.NewFromInt(1_000_000),
			InterestRate:   decimal.RequireFromString("0.04"),
		}, true
	case AccountKindCurrent:
		return Terms{
			MinimumBalance: decimal.Zero,
			DailyLimit:     decimal.NewFromInt(200_000),
			MonthlyLimit:   decimal.NewFromInt(1_000_000),
			InterestRate:   decimal.Zero,
		}, true
	}
	return Terms{}, false
}

// NewAccount builds a zero-balance account of kind with its opening terms.
// Unknown kinds yield an account with zero limits.
func NewAccount(id, userID, number string, kind AccountKind, now time.Time) Account {
	terms, _ := TermsFor(kind)
	return Account{
		ID:             id,
		UserID:         userID,
		Number:         number,
		Kind:           kind,
		Balance:        decimal.Zero,
		MinimumBalance: terms.MinimumBalance,
		DailyLimit:     terms.DailyLimit,
		MonthlyLimit:   terms.MonthlyLimit,
		InterestRate:   terms.InterestRate,
		CreatedAt:      now,
	}
}
