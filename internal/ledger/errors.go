package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrTargetAccountNotFound = errors.New("target account not found")
	ErrTransactionNotFound   = errors.New("transaction not found")

	ErrAccountFrozen          = errors.New("account is frozen")
	ErrTargetAccountFrozen    = errors.New("target account is frozen")
	ErrDailyLimitExceeded     = errors.New("daily transfer limit exceeded")
	ErrMinimumBalance         = errors.New("minimum balance violation")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidAmount          = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidKind            = errors.New("invalid transaction kind")
	ErrSameAccount            = errors.New("source and target account must differ")
	ErrDuplicateReference     = errors.New("duplicate transaction reference")
	ErrDuplicateAccountNumber = errors.New("duplicate account number")

	// ErrLockTimeout and ErrConcurrencyConflict are transient: nothing was
	// committed and the whole operation may be retried.
	ErrLockTimeout         = errors.New("timed out waiting for account lock")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrStorageUnavailable wraps infrastructure failures. The engine never
	// retries these itself.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// RuleError is a business-rule rejection carrying a message fit for display.
type RuleError struct {
	Err    error
	Detail string
}

func (e *RuleError) Error() string { return e.Detail }

func (e *RuleError) Unwrap() error { return e.Err }

func ruleErrorf(kind error, format string, args ...any) error {
	return &RuleError{Err: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether err is a transient concurrency failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrConcurrencyConflict)
}
