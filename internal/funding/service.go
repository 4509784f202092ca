package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/audit"
	"github.com/sanbank/core/internal/ledger"
	"github.com/sanbank/core/internal/logging"
)

const depositDescription = "Self deposit / top-up"

var maxDeposit = decimal.NewFromInt(1_000_000)

// ErrAmountOutOfRange is returned for self deposits outside (0, 1,000,000].
var ErrAmountOutOfRange = errors.New("amount must be between ₹1 and ₹10,00,000")

// AccountLookup resolves the caller's primary account.
type AccountLookup interface {
	Primary(ctx context.Context, userID string) (ledger.Account, error)
}

// Service moves money in and out of a customer's own account.
type Service struct {
	engine   *ledger.Engine
	accounts AccountLookup
	recorder audit.Recorder
	logger   *slog.Logger
}

// NewService prepares a funding service. recorder may be nil.
func NewService(engine *ledger.Engine, accounts AccountLookup, recorder audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{engine: engine, accounts: accounts, recorder: recorder, logger: logger}
}

// Result is the domain outcome of a deposit or withdrawal.
type Result struct {
	Account     ledger.Account
	Transaction ledger.Transaction
}

// Deposit credits the caller's primary account.
func (s *Service) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (Result, error) {
	if !amount.IsPositive() || amount.GreaterThan(maxDeposit) {
		return Result{}, ErrAmountOutOfRange
	}
	account, err := s.accounts.Primary(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	acc, tx, err := s.engine.Deposit(ctx, account.ID, amount, depositDescription)
	if err != nil {
		return Result{}, err
	}
	s.record(ctx, userID, tx)
	return Result{Account: acc, Transaction: tx}, nil
}

// Withdraw debits the caller's primary account under the usual debit rules.
func (s *Service) Withdraw(ctx context.Context, userID string, amount decimal.Decimal, description string) (Result, error) {
	account, err := s.accounts.Primary(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	acc, tx, err := s.engine.Withdraw(ctx, account.ID, amount, description)
	if err != nil {
		return Result{}, err
	}
	s.record(ctx, userID, tx)
	return Result{Account: acc, Transaction: tx}, nil
}

// Message renders the confirmation shown to the customer.
func (s *Service) Message(r Result) string {
	amount := ledger.FormatAmount(r.Transaction.Amount, s.engine.Currency())
	if r.Transaction.Kind == ledger.KindDeposit {
		return fmt.Sprintf("%s added to your account.", amount)
	}
	return fmt.Sprintf("%s withdrawn from your account.", amount)
}

func (s *Service) record(ctx context.Context, userID string, tx ledger.Transaction) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, audit.TransactionEvent(userID, tx)); err != nil {
		s.logger.Warn("audit record failed", "reference", tx.Reference, "error", err)
	}
}
