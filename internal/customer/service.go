package customer

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sanbank/core/internal/accounts"
	"github.com/sanbank/core/internal/audit"
	"github.com/sanbank/core/internal/ledger"
	"github.com/sanbank/core/internal/logging"
	"github.com/sanbank/core/internal/notification"
)

var (
	pinPattern     = regexp.MustCompile(`^\d{4}$`)
	aadhaarPattern = regexp.MustCompile(`^\d{12}$`)
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
)

// AccountOpener opens the first account of a new customer.
type AccountOpener interface {
	Open(ctx context.Context, userID string, kind ledger.AccountKind) (ledger.Account, error)
	Primary(ctx context.Context, userID string) (ledger.Account, error)
}

// Service manages the customer lifecycle: registration, KYC and the
// transaction PIN.
type Service struct {
	repo     Repository
	accounts AccountOpener
	notifier notification.Notifier
	recorder audit.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a customer service. notifier and recorder may be nil.
func NewService(repo Repository, opener AccountOpener, notifier notification.Notifier, recorder audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{repo: repo, accounts: opener, notifier: notifier, recorder: recorder, logger: logger, now: time.Now}
}

// RegisterInput carries the registration form. UserID is the subject issued
// by the identity provider.
type RegisterInput struct {
	UserID      string
	Email       string
	Name        string
	AccountKind string
}

// Register creates the customer record and opens its first account. Any
// kind other than CURRENT opens a SAVINGS account. A repeat registration of
// a customer whose account was never opened resumes at the account step.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Customer, ledger.Account, error) {
	if in.UserID == "" {
		return Customer{}, ledger.Account{}, errors.New("user id is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return Customer{}, ledger.Account{}, ErrInvalidEmail
	}
	kind := ledger.AccountKindSavings
	if strings.EqualFold(in.AccountKind, string(ledger.AccountKindCurrent)) {
		kind = ledger.AccountKindCurrent
	}

	c := Customer{
		ID:        in.UserID,
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if !errors.Is(err, ErrCustomerExists) {
			return Customer{}, ledger.Account{}, err
		}
		existing, resume, rerr := s.resumable(ctx, c)
		if rerr != nil {
			return Customer{}, ledger.Account{}, rerr
		}
		if !resume {
			return Customer{}, ledger.Account{}, err
		}
		s.logger.Warn("resuming registration without account", "user_id", c.ID)
		c = existing
	}

	account, err := s.accounts.Open(ctx, c.ID, kind)
	if err != nil {
		s.logger.Error("open account for new customer", "user_id", c.ID, "error", err)
		return Customer{}, ledger.Account{}, err
	}

	s.logger.Info("customer registered", "user_id", c.ID, "account_id", account.ID)
	return c, account, nil
}

// resumable reports whether c was stored by an earlier registration that
// failed before its account was opened.
func (s *Service) resumable(ctx context.Context, c Customer) (Customer, bool, error) {
	existing, err := s.repo.FindByID(ctx, c.ID)
	if errors.Is(err, ErrCustomerNotFound) {
		return Customer{}, false, nil
	}
	if err != nil {
		return Customer{}, false, err
	}
	if existing.Email != c.Email {
		return Customer{}, false, nil
	}
	_, err = s.accounts.Primary(ctx, c.ID)
	switch {
	case errors.Is(err, accounts.ErrNoAccount):
		return existing, true, nil
	case err != nil:
		return Customer{}, false, err
	}
	return Customer{}, false, nil
}

// VerifyKYC validates the submitted documents and marks the customer as
// verified.
func (s *Service) VerifyKYC(ctx context.Context, userID string, docs KYCDocuments) error {
	if docs.Aadhaar == "" || docs.PAN == "" || docs.DateOfBirth == "" || docs.Address == "" {
		return ErrKYCIncomplete
	}
	if !aadhaarPattern.MatchString(strings.ReplaceAll(docs.Aadhaar, " ", "")) {
		return ErrInvalidAadhaar
	}
	if !panPattern.MatchString(strings.ToUpper(docs.PAN)) {
		return ErrInvalidPAN
	}
	if err := s.repo.MarkKYCVerified(ctx, userID); err != nil {
		return err
	}
	s.record(ctx, audit.NewEvent(audit.ActionKYCVerified, userID, userID, ""))
	return nil
}

// KYCVerified reports whether the customer passed KYC.
func (s *Service) KYCVerified(ctx context.Context, userID string) (bool, error) {
	c, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return c.KYCVerified, nil
}

// SetPIN sets or changes the 4-digit transaction PIN. Changing an existing
// PIN requires the current one.
func (s *Service) SetPIN(ctx context.Context, userID, pin, currentPIN string) error {
	if !pinPattern.MatchString(pin) {
		return ErrInvalidPIN
	}
	c, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if len(c.PINHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(c.PINHash, []byte(currentPIN)); err != nil {
			return ErrPINMismatch
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePIN(ctx, userID, hash); err != nil {
		return err
	}

	s.record(ctx, audit.NewEvent(audit.ActionPINChanged, userID, userID, ""))
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Kind:   notification.KindPINUpdated,
			UserID: userID,
			Title:  "Transaction PIN Updated",
			Body:   "Your 4-digit transaction PIN has been set successfully.",
			Type:   notification.TypeSuccess,
			Link:   "/security",
		}); err != nil {
			s.logger.Warn("notification failed", "kind", notification.KindPINUpdated, "user_id", userID, "error", err)
		}
	}
	return nil
}

// HasPIN reports whether the customer has set a transaction PIN.
func (s *Service) HasPIN(ctx context.Context, userID string) (bool, error) {
	c, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(c.PINHash) > 0, nil
}

// VerifyPIN checks pin against the stored hash without revealing it.
func (s *Service) VerifyPIN(ctx context.Context, userID, pin string) (hasPIN, valid bool, err error) {
	c, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return false, false, err
	}
	if len(c.PINHash) == 0 {
		return false, false, nil
	}
	return true, bcrypt.CompareHashAndPassword(c.PINHash, []byte(pin)) == nil, nil
}

func (s *Service) record(ctx context.Context, e audit.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, e); err != nil {
		s.logger.Warn("audit record failed", "action", e.Action, "user_id", e.UserID, "error", err)
	}
}
