package funding

import "github.com/shopspring/decimal"

// DepositRequest tops up the caller's primary account.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// WithdrawRequest takes cash out of the caller's primary account.
type WithdrawRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// FundingResponse represents the API response for deposits and withdrawals.
type FundingResponse struct {
	Success   bool   `json:"success"`
	Balance   string `json:"balance"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}
