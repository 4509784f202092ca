package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/audit"
	"github.com/sanbank/core/internal/ledger"
	"github.com/sanbank/core/internal/logging"
	"github.com/sanbank/core/internal/notification"
	"github.com/sanbank/core/internal/risk"
)

var (
	// ErrFlagged blocks a transfer the risk policy rejected. Use errors.As
	// with *FlaggedError to read the score.
	ErrFlagged = errors.New("transaction flagged as suspicious, please contact security")
	// ErrPINRequired is returned when the customer set a PIN but sent none.
	ErrPINRequired = errors.New("transaction PIN is required")
	// ErrInvalidPIN is returned when the PIN does not match.
	ErrInvalidPIN = errors.New("invalid transaction PIN")
	// ErrMissingTarget is returned when no target account number was given.
	ErrMissingTarget = errors.New("target account number is required")
)

// FlaggedError carries the assessment of a rejected transfer.
type FlaggedError struct {
	Assessment risk.Assessment
}

func (e *FlaggedError) Error() string { return ErrFlagged.Error() }

func (e *FlaggedError) Unwrap() error { return ErrFlagged }

// AccountLookup resolves the caller's primary account.
type AccountLookup interface {
	Primary(ctx context.Context, userID string) (ledger.Account, error)
}

// PINVerifier checks a customer's transaction PIN.
type PINVerifier interface {
	VerifyPIN(ctx context.Context, userID, pin string) (hasPIN, valid bool, err error)
}

// Service orchestrates a customer transfer: risk scoring, the ledger
// movement and the side effects that follow a committed transaction.
type Service struct {
	engine   *ledger.Engine
	accounts AccountLookup
	pins     PINVerifier
	assessor risk.Assessor
	policy   risk.Policy
	fraud    *risk.Service
	notifier notification.Notifier
	recorder audit.Recorder
	logger   *slog.Logger
}

// Deps groups the collaborators of the payment service. Pins, Notifier and
// Recorder are optional.
type Deps struct {
	Engine   *ledger.Engine
	Accounts AccountLookup
	Pins     PINVerifier
	Assessor risk.Assessor
	Policy   risk.Policy
	Fraud    *risk.Service
	Notifier notification.Notifier
	Recorder audit.Recorder
	Logger   *slog.Logger
}

// NewService constructs a payment service.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Policy == (risk.Policy{}) {
		d.Policy = risk.DefaultPolicy
	}
	return &Service{
		engine:   d.Engine,
		accounts: d.Accounts,
		pins:     d.Pins,
		assessor: d.Assessor,
		policy:   d.Policy,
		fraud:    d.Fraud,
		notifier: d.Notifier,
		recorder: d.Recorder,
		logger:   d.Logger,
	}
}

// TransferInput captures a transfer request from the caller's primary
// account to an account number.
type TransferInput struct {
	UserID              string
	TargetAccountNumber string
	Amount              decimal.Decimal
	Description         string
	PIN                 string
}

// TransferResult describes a committed transfer.
type TransferResult struct {
	Transaction ledger.Transaction
	External    bool
	Assessment  risk.Assessment
	Decision    risk.Decision
}

// Transfer moves money to another account of this bank, or out of the bank
// when the number is unknown here. Rejected transfers never reach the
// ledger.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	if in.TargetAccountNumber == "" {
		return TransferResult{}, ErrMissingTarget
	}
	if !in.Amount.IsPositive() {
		return TransferResult{}, ledger.ErrInvalidAmount
	}

	source, err := s.accounts.Primary(ctx, in.UserID)
	if err != nil {
		return TransferResult{}, err
	}
	if err := s.checkPIN(ctx, in.UserID, in.PIN); err != nil {
		return TransferResult{}, err
	}

	target, err := s.engine.Store().AccountByNumber(ctx, in.TargetAccountNumber)
	external := errors.Is(err, ledger.ErrAccountNotFound)
	if err != nil && !external {
		return TransferResult{}, err
	}

	kind := ledger.KindInternalTransfer
	if external {
		kind = ledger.KindExternalTransfer
	}
	assessment, err := s.assessor.Analyze(ctx, risk.Input{
		UserID:          in.UserID,
		Amount:          in.Amount,
		Kind:            kind,
		SourceAccountID: source.ID,
	})
	if err != nil {
		return TransferResult{}, fmt.Errorf("risk assessment: %w", err)
	}

	decision := s.policy.Decide(assessment.Score)
	if decision == risk.Reject {
		s.logFraud(ctx, in.UserID, "", assessment)
		return TransferResult{}, &FlaggedError{Assessment: assessment}
	}

	var tx ledger.Transaction
	if external {
		_, tx, err = s.engine.ExternalTransfer(ctx, source.ID, in.TargetAccountNumber, in.Amount, in.Description)
	} else {
		tx, err = s.engine.Transfer(ctx, ledger.TransferInput{
			SourceAccountID: source.ID,
			TargetAccountID: target.ID,
			Amount:          in.Amount,
			Kind:            ledger.KindInternalTransfer,
			Description:     in.Description,
		})
	}
	if err != nil {
		return TransferResult{}, err
	}

	s.notifySent(ctx, in, external)
	s.record(ctx, audit.TransactionEvent(in.UserID, tx))
	if decision == risk.Review {
		s.logFraud(ctx, in.UserID, tx.ID, assessment)
	}

	return TransferResult{Transaction: tx, External: external, Assessment: assessment, Decision: decision}, nil
}

func (s *Service) checkPIN(ctx context.Context, userID, pin string) error {
	if s.pins == nil {
		return nil
	}
	hasPIN, valid, err := s.pins.VerifyPIN(ctx, userID, pin)
	if err != nil {
		return err
	}
	switch {
	case !hasPIN:
		return nil
	case pin == "":
		return ErrPINRequired
	case !valid:
		return ErrInvalidPIN
	}
	return nil
}

func (s *Service) notifySent(ctx context.Context, in TransferInput, external bool) {
	if s.notifier == nil {
		return
	}
	dest := "SAN Bank account"
	if external {
		dest = "external account"
	}
	msg := notification.Message{
		Kind:   notification.KindTransfer,
		UserID: in.UserID,
		Title:  "Transaction Successful",
		Body:   fmt.Sprintf("You sent %s to %s %s.", ledger.FormatAmount(in.Amount, s.engine.Currency()), dest, in.TargetAccountNumber),
		Type:   notification.TypeSuccess,
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", "kind", msg.Kind, "user_id", in.UserID, "error", err)
	}
}

func (s *Service) record(ctx context.Context, e audit.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, e); err != nil {
		s.logger.Warn("audit record failed", "reference", e.Subject, "error", err)
	}
}

func (s *Service) logFraud(ctx context.Context, userID, transactionID string, a risk.Assessment) {
	if s.fraud == nil {
		return
	}
	if _, err := s.fraud.LogFraudAttempt(ctx, userID, transactionID, a.Score, a.Reason()); err != nil {
		s.logger.Error("log fraud attempt", "user_id", userID, "risk_score", a.Score, "error", err)
	}
}
