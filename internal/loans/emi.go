package loans

import "github.com/shopspring/decimal"

// emiPrecision bounds intermediate digits while compounding.
const emiPrecision = 24

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// MonthlyInstalment is the equated monthly instalment for principal at an
// annual percentage rate over months, rounded to whole rupees:
// P * r * (1+r)^n / ((1+r)^n - 1) with r the monthly rate.
func MonthlyInstalment(principal, annualRate decimal.Decimal, months int) decimal.Decimal {
	if months <= 0 {
		return decimal.Zero
	}
	r := annualRate.Div(hundred).Div(twelve)
	if r.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(months))).Round(0)
	}
	growth := decimal.NewFromInt(1)
	step := r.Add(decimal.NewFromInt(1))
	for i := 0; i < months; i++ {
		growth = growth.Mul(step).Round(emiPrecision)
	}
	return principal.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1))).Round(0)
}
