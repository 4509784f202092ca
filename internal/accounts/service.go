package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/sanbank/core/internal/audit"
	"github.com/sanbank/core/internal/ledger"
	"github.com/sanbank/core/internal/logging"
	"github.com/sanbank/core/internal/notification"
)

// Service opens accounts and manages their settings on top of the ledger.
type Service struct {
	engine   *ledger.Engine
	store    ledger.Store
	notifier notification.Notifier
	recorder audit.Recorder
	logger   *slog.Logger
	now      func() time.Time
	numbers  func() string
}

// NewService builds an account service. notifier and recorder may be nil.
func NewService(engine *ledger.Engine, notifier notification.Notifier, recorder audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		engine:   engine,
		store:    engine.Store(),
		notifier: notifier,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
		numbers:  randomNumber,
	}
}

func randomNumber() string {
	return fmt.Sprintf("%s%09d", AccountNumberPrefix, rand.IntN(1_000_000_000))
}

// Open creates an empty account of kind for userID with the kind's opening
// terms and a freshly allocated account number.
func (s *Service) Open(ctx context.Context, userID string, kind ledger.AccountKind) (ledger.Account, error) {
	if userID == "" {
		return ledger.Account{}, errors.New("user id is required")
	}
	if _, ok := ledger.TermsFor(kind); !ok {
		return ledger.Account{}, ErrUnknownKind
	}

	for attempt := 0; attempt < numberAttempts; attempt++ {
		number := s.numbers()
		if _, err := s.store.AccountByNumber(ctx, number); err == nil {
			continue
		} else if !errors.Is(err, ledger.ErrAccountNotFound) {
			return ledger.Account{}, err
		}

		account := ledger.NewAccount(uuid.NewString(), userID, number, kind, s.now().UTC())
		err := s.store.CreateAccount(ctx, account)
		if errors.Is(err, ledger.ErrDuplicateAccountNumber) {
			continue
		}
		if err != nil {
			return ledger.Account{}, err
		}
		s.logger.Info("account opened", "account_id", account.ID, "user_id", userID, "kind", string(kind))
		return account, nil
	}
	return ledger.Account{}, ErrNumberSpaceExhausted
}

// Primary returns the first account the user opened.
func (s *Service) Primary(ctx context.Context, userID string) (ledger.Account, error) {
	accounts, err := s.store.AccountsByUser(ctx, userID)
	if err != nil {
		return ledger.Account{}, err
	}
	if len(accounts) == 0 {
		return ledger.Account{}, ErrNoAccount
	}
	return accounts[0], nil
}

// History lists the newest transactions of the user's primary account.
func (s *Service) History(ctx context.Context, userID string, limit int) (ledger.Account, []ledger.Transaction, error) {
	account, err := s.Primary(ctx, userID)
	if err != nil {
		return ledger.Account{}, nil, err
	}
	txs, err := s.engine.History(ctx, account.ID, limit)
	if err != nil {
		return ledger.Account{}, nil, err
	}
	return account, txs, nil
}

// UpdateLimits validates and applies new transfer limits to the user's
// primary account.
func (s *Service) UpdateLimits(ctx context.Context, userID string, in LimitsInput) (ledger.Account, error) {
	if in.Daily == nil && in.Monthly == nil {
		return ledger.Account{}, ErrNoLimits
	}
	if in.Daily != nil && (in.Daily.LessThan(minLimit) || in.Daily.GreaterThan(maxDailyLimit)) {
		return ledger.Account{}, ErrDailyLimitRange
	}
	if in.Monthly != nil && (in.Monthly.LessThan(minLimit) || in.Monthly.GreaterThan(maxMonthlyLimit)) {
		return ledger.Account{}, ErrMonthlyLimitRange
	}

	primary, err := s.Primary(ctx, userID)
	if err != nil {
		return ledger.Account{}, err
	}
	account, err := s.engine.UpdateLimits(ctx, primary.ID, in.Daily, in.Monthly)
	if err != nil {
		return ledger.Account{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:   notification.KindLimitsUpdated,
		UserID: userID,
		Title:  "Card Limits Updated",
		Body: fmt.Sprintf("Your card limits have been updated. Daily: %s, Monthly: %s.",
			ledger.FormatAmount(account.DailyLimit, s.engine.Currency()),
			ledger.FormatAmount(account.MonthlyLimit, s.engine.Currency())),
		Type: notification.TypeInfo,
	})
	return account, nil
}

// ToggleFreeze flips the frozen flag of the user's primary account.
func (s *Service) ToggleFreeze(ctx context.Context, userID string) (ledger.Account, error) {
	primary, err := s.Primary(ctx, userID)
	if err != nil {
		return ledger.Account{}, err
	}
	account, err := s.engine.ToggleFrozen(ctx, primary.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	s.record(ctx, audit.NewEvent(audit.ActionAccountFrozen, userID, account.ID, fmt.Sprintf("frozen=%t", account.Frozen)))
	return account, nil
}

func (s *Service) record(ctx context.Context, e audit.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, e); err != nil {
		s.logger.Error("audit record failed", "action", e.Action, "user_id", e.UserID, "error", err)
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
