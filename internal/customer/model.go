package customer

import (
	"errors"
	"time"
)

// Customer is a registered bank customer. Authentication is handled by the
// upstream identity provider; this record holds what the bank itself owns.
type Customer struct {
	ID          string
	Email       string
	Name        string
	KYCVerified bool
	PINHash     []byte
	CreatedAt   time.Time
}

// KYCDocuments are the identity documents submitted for verification.
type KYCDocuments struct {
	Aadhaar     string
	PAN         string
	DateOfBirth string
	Address     string
}

var (
	ErrCustomerExists   = errors.New("customer already registered")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidEmail     = errors.New("a valid email is required")
	ErrInvalidPIN       = errors.New("PIN must be exactly 4 digits")
	ErrPINMismatch      = errors.New("current PIN is incorrect")
	ErrKYCIncomplete    = errors.New("all fields are required: Aadhaar, PAN, Date of Birth, Address")
	ErrInvalidAadhaar   = errors.New("Aadhaar number must be 12 digits")
	ErrInvalidPAN       = errors.New("invalid PAN format (e.g. ABCDE1234F)")
)
