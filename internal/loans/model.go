package loans

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Type is a loan product.
type Type string

const (
	TypePersonal  Type = "PERSONAL"
	TypeHome      Type = "HOME"
	TypeCar       Type = "CAR"
	TypeEducation Type = "EDUCATION"
	TypeBusiness  Type = "BUSINESS"
)

// StatusPending is the state of every new application. Approval happens
// outside this service.
const StatusPending = "PENDING"

// annualRates are percentages per year by product.
var annualRates = map[Type]decimal.Decimal{
	TypePersonal:  decimal.RequireFromString("12.5"),
	TypeHome:      decimal.RequireFromString("8.5"),
	TypeCar:       decimal.RequireFromString("9.0"),
	TypeEducation: decimal.RequireFromString("7.5"),
	TypeBusiness:  decimal.RequireFromString("14.0"),
}

var tenures = map[int]bool{12: true, 24: true, 36: true, 48: true, 60: true, 84: true, 120: true}

var (
	minPrincipal = decimal.NewFromInt(10_000)
	maxPrincipal = decimal.NewFromInt(10_000_000)
)

// Loan is an application and, once approved elsewhere, its repayment state.
type Loan struct {
	ID           string
	UserID       string
	Type         Type
	Amount       decimal.Decimal
	InterestRate decimal.Decimal
	TenureMonths int
	EMI          decimal.Decimal
	Remaining    decimal.Decimal
	Status       string
	CreatedAt    time.Time
}

var (
	ErrInvalidType   = errors.New("invalid loan type")
	ErrAmountRange   = errors.New("loan amount must be between ₹10,000 and ₹1,00,00,000")
	ErrInvalidTenure = errors.New("tenure must be 12, 24, 36, 48, 60, 84 or 120 months")
	ErrKYCRequired   = errors.New("KYC verification is required before applying for a loan")
	ErrMissingUser   = errors.New("user id is required")
)
