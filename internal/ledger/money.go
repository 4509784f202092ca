package ledger

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when the engine is not configured with one.
const DefaultCurrency = "INR"

var minorUnit = decimal.New(1, -2)

// FormatAmount renders amount in the display format of the ISO currency code,
// e.g. "₹50,000.00" for INR. Unknown codes fall back to "<amount> <code>".
func FormatAmount(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// validAmount reports whether amount is strictly positive and expressible in
// minor units.
func validAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	return amount.Equal(amount.Round(2))
}
