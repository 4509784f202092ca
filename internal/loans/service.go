package loans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/audit"
	"github.com/sanbank/core/internal/customer"
	"github.com/sanbank/core/internal/ledger"
	"github.com/sanbank/core/internal/logging"
	"github.com/sanbank/core/internal/notification"
)

// KYCChecker reports whether a customer passed KYC.
type KYCChecker interface {
	KYCVerified(ctx context.Context, userID string) (bool, error)
}

// Service takes loan applications from KYC-verified customers.
type Service struct {
	repo     Repository
	kyc      KYCChecker
	notifier notification.Notifier
	recorder audit.Recorder
	currency string
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a loan service. notifier and recorder may be nil; an
// empty currency selects ledger.DefaultCurrency.
func NewService(repo Repository, kyc KYCChecker, notifier notification.Notifier, recorder audit.Recorder, currency string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	if currency == "" {
		currency = ledger.DefaultCurrency
	}
	return &Service{repo: repo, kyc: kyc, notifier: notifier, recorder: recorder, currency: currency, logger: logger, now: time.Now}
}

// ApplyInput is a loan application.
type ApplyInput struct {
	UserID       string
	Type         string
	Amount       decimal.Decimal
	TenureMonths int
}

// Apply validates the application, prices it and stores it as PENDING.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (Loan, error) {
	if in.UserID == "" {
		return Loan{}, ErrMissingUser
	}
	kind := Type(strings.ToUpper(strings.TrimSpace(in.Type)))
	rate, ok := annualRates[kind]
	if !ok {
		return Loan{}, ErrInvalidType
	}
	if in.Amount.LessThan(minPrincipal) || in.Amount.GreaterThan(maxPrincipal) || !in.Amount.Equal(in.Amount.Round(2)) {
		return Loan{}, ErrAmountRange
	}
	if !tenures[in.TenureMonths] {
		return Loan{}, ErrInvalidTenure
	}

	verified, err := s.kyc.KYCVerified(ctx, in.UserID)
	if err != nil && !errors.Is(err, customer.ErrCustomerNotFound) {
		return Loan{}, fmt.Errorf("check kyc: %w", err)
	}
	if !verified {
		return Loan{}, ErrKYCRequired
	}

	loan := Loan{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		Type:         kind,
		Amount:       in.Amount,
		InterestRate: rate,
		TenureMonths: in.TenureMonths,
		EMI:          MonthlyInstalment(in.Amount, rate, in.TenureMonths),
		Remaining:    in.Amount,
		Status:       StatusPending,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, loan); err != nil {
		return Loan{}, err
	}
	s.logger.Info("loan applied", "loan_id", loan.ID, "user_id", loan.UserID, "type", string(loan.Type), "amount", loan.Amount.String())

	event := audit.NewEvent(audit.ActionLoanApplied, loan.UserID, loan.ID,
		fmt.Sprintf("type=%s tenure=%d emi=%s", loan.Type, loan.TenureMonths, loan.EMI.String()))
	event.Amount = loan.Amount.StringFixed(2)
	s.record(ctx, event)
	s.notify(ctx, notification.Message{
		Kind:   notification.KindLoanApplied,
		UserID: loan.UserID,
		Title:  "Loan Application Submitted",
		Body:   s.Message(loan),
		Type:   notification.TypeInfo,
		Link:   "/loans",
	})
	return loan, nil
}

// List returns the user's loans, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Loan, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Message is the confirmation shown after an application.
func (s *Service) Message(l Loan) string {
	return fmt.Sprintf("Loan application for %s submitted successfully! EMI: %s/month",
		ledger.FormatAmount(l.Amount, s.currency), ledger.FormatAmount(l.EMI, s.currency))
}

func (s *Service) record(ctx context.Context, e audit.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, e); err != nil {
		s.logger.Warn("audit record failed", "action", e.Action, "loan_id", e.Subject, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", "kind", msg.Kind, "user_id", msg.UserID, "error", err)
	}
}
