package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/logging"
)

// Engine validates and executes money movement against a Store. It holds no
// mutable state of its own; all serialization happens in Store.Update.
type Engine struct {
	store    Store
	now      func() time.Time
	loc      *time.Location
	currency string
	logger   *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone whose calendar day bounds the daily limit window.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithCurrency sets the ISO code used when formatting amounts in messages.
func WithCurrency(code string) Option {
	return func(e *Engine) {
		if code != "" {
			e.currency = code
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine builds an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		now:      time.Now,
		loc:      time.Local,
		currency: DefaultCurrency,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying account store for read paths.
func (e *Engine) Store() Store { return e.store }

// Currency returns the configured display currency.
func (e *Engine) Currency() string { return e.currency }

// Deposit credits amount to the account. Deposits carry no limit checks and
// are accepted on frozen accounts.
func (e *Engine) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) (Account, Transaction, error) {
	if !validAmount(amount) {
		return Account{}, Transaction{}, ErrInvalidAmount
	}

	var (
		account Account
		record  Transaction
	)
	err := e.store.Update(ctx, []string{accountID}, func(tx Tx) error {
		acc, err := tx.Account(ctx, accountID)
		if err != nil {
			return err
		}
		now := e.now()
		acc.Balance = acc.Balance.Add(amount)
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		rec, err := e.insert(ctx, tx, PrefixDeposit, Transaction{
			Kind:            KindDeposit,
			Amount:          amount,
			TargetAccountID: accountID,
			Description:     description,
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		account, record = acc, rec
		return nil
	})
	if err != nil {
		return Account{}, Transaction{}, err
	}

	e.logger.Info("ledger deposit", "account_id", accountID, "reference", record.Reference, "amount", amount.String())
	return account, record, nil
}

// Withdraw debits amount from the account after the outgoing checks pass.
func (e *Engine) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) (Account, Transaction, error) {
	account, record, err := e.withdraw(ctx, accountID, amount, description, PrefixWithdrawal)
	if err != nil {
		return Account{}, Transaction{}, err
	}
	e.logger.Info("ledger withdrawal", "account_id", accountID, "reference", record.Reference, "amount", amount.String())
	return account, record, nil
}

// ExternalTransfer moves money to an account number outside this ledger. It
// is booked as a withdrawal tagged with the EXT reference prefix; no credit
// entry exists on this ledger.
func (e *Engine) ExternalTransfer(ctx context.Context, sourceAccountID, targetNumber string, amount decimal.Decimal, description string) (Account, Transaction, error) {
	if description == "" {
		description = fmt.Sprintf("External transfer to %s", targetNumber)
	}
	account, record, err := e.withdraw(ctx, sourceAccountID, amount, description, PrefixExternal)
	if err != nil {
		return Account{}, Transaction{}, err
	}
	e.logger.Info("ledger external transfer", "account_id", sourceAccountID, "target_number", targetNumber, "reference", record.Reference, "amount", amount.String())
	return account, record, nil
}

func (e *Engine) withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description, prefix string) (Account, Transaction, error) {
	if !validAmount(amount) {
		return Account{}, Transaction{}, ErrInvalidAmount
	}

	var (
		account Account
		record  Transaction
	)
	err := e.store.Update(ctx, []string{accountID}, func(tx Tx) error {
		acc, err := tx.Account(ctx, accountID)
		if err != nil {
			return err
		}
		now := e.now()
		if err := e.debit(&acc, amount, now); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		rec, err := e.insert(ctx, tx, prefix, Transaction{
			Kind:            KindWithdrawal,
			Amount:          amount,
			SourceAccountID: accountID,
			Description:     description,
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		account, record = acc, rec
		return nil
	})
	if err != nil {
		return Account{}, Transaction{}, err
	}
	return account, record, nil
}

// TransferInput describes a movement between two accounts of this ledger.
type TransferInput struct {
	SourceAccountID string
	TargetAccountID string
	Amount          decimal.Decimal
	Kind            TransactionKind
	Description     string
}

// Transfer debits the source and credits the target in one atomic unit. The
// source goes through the same checks as Withdraw; the target only has to
// exist and not be frozen.
func (e *Engine) Transfer(ctx context.Context, in TransferInput) (Transaction, error) {
	if !validAmount(in.Amount) {
		return Transaction{}, ErrInvalidAmount
	}
	kind := in.Kind
	if kind == "" {
		kind = KindInternalTransfer
	}
	if kind != KindInternalTransfer && kind != KindTransfer {
		return Transaction{}, ErrInvalidKind
	}
	if in.SourceAccountID == in.TargetAccountID {
		return Transaction{}, ErrSameAccount
	}

	var record Transaction
	err := e.store.Update(ctx, []string{in.SourceAccountID, in.TargetAccountID}, func(tx Tx) error {
		src, err := tx.Account(ctx, in.SourceAccountID)
		if err != nil {
			return err
		}
		now := e.now()
		if err := e.debit(&src, in.Amount, now); err != nil {
			return err
		}

		dst, err := tx.Account(ctx, in.TargetAccountID)
		if errors.Is(err, ErrAccountNotFound) {
			return ErrTargetAccountNotFound
		}
		if err != nil {
			return err
		}
		if dst.Frozen {
			return ErrTargetAccountFrozen
		}
		dst.Balance = dst.Balance.Add(in.Amount)

		if err := tx.SaveAccount(ctx, src); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, dst); err != nil {
			return err
		}
		rec, err := e.insert(ctx, tx, PrefixTransfer, Transaction{
			Kind:            kind,
			Amount:          in.Amount,
			SourceAccountID: in.SourceAccountID,
			TargetAccountID: in.TargetAccountID,
			Description:     in.Description,
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	e.logger.Info("ledger transfer",
		"source_account_id", in.SourceAccountID,
		"target_account_id", in.TargetAccountID,
		"reference", record.Reference,
		"amount", in.Amount.String(),
	)
	return record, nil
}

// MonthlyInterest is balance × annualRate / 12 rounded to minor units.
func MonthlyInterest(balance, annualRate decimal.Decimal) decimal.Decimal {
	return balance.Mul(annualRate).Div(decimal.NewFromInt(12)).Round(2)
}

// AccrueInterest credits one month of simple interest to every savings
// account with a positive balance. Each account is credited in its own atomic
// unit; on error the credits already committed are returned with it.
// Repeated runs in the same period credit again.
func (e *Engine) AccrueInterest(ctx context.Context) ([]InterestCredit, error) {
	ids, err := e.store.InterestCandidates(ctx)
	if err != nil {
		return nil, err
	}

	credits := make([]InterestCredit, 0, len(ids))
	for _, id := range ids {
		var credited *InterestCredit
		err := e.store.Update(ctx, []string{id}, func(tx Tx) error {
			acc, err := tx.Account(ctx, id)
			if err != nil {
				return err
			}
			if acc.Kind != AccountKindSavings || !acc.Balance.IsPositive() {
				return nil
			}
			interest := MonthlyInterest(acc.Balance, acc.InterestRate)
			if interest.LessThan(minorUnit) {
				return nil
			}

			now := e.now()
			acc.Balance = acc.Balance.Add(interest)
			acc.LastInterestCredit = &now
			if err := tx.SaveAccount(ctx, acc); err != nil {
				return err
			}
			if _, err := e.insert(ctx, tx, PrefixInterest, Transaction{
				Kind:            KindInterest,
				Amount:          interest,
				TargetAccountID: id,
				Description:     fmt.Sprintf("Monthly interest credit (%s%% p.a.)", acc.InterestRate.Shift(2).StringFixed(1)),
				CreatedAt:       now,
			}); err != nil {
				return err
			}
			credited = &InterestCredit{AccountID: id, Amount: interest}
			return nil
		})
		if err != nil {
			return credits, fmt.Errorf("accrue interest for account %s: %w", id, err)
		}
		if credited != nil {
			credits = append(credits, *credited)
		}
	}

	e.logger.Info("ledger interest accrued", "candidates", len(ids), "credited", len(credits))
	return credits, nil
}

// UpdateLimits replaces the transfer limits that are not nil.
func (e *Engine) UpdateLimits(ctx context.Context, accountID string, daily, monthly *decimal.Decimal) (Account, error) {
	var account Account
	err := e.store.Update(ctx, []string{accountID}, func(tx Tx) error {
		acc, err := tx.Account(ctx, accountID)
		if err != nil {
			return err
		}
		if daily != nil {
			acc.DailyLimit = *daily
		}
		if monthly != nil {
			acc.MonthlyLimit = *monthly
		}
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		account = acc
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// SetFrozen sets the frozen flag of an account.
func (e *Engine) SetFrozen(ctx context.Context, accountID string, frozen bool) (Account, error) {
	return e.setFrozen(ctx, accountID, func(bool) bool { return frozen })
}

// ToggleFrozen flips the frozen flag of an account under its lock.
func (e *Engine) ToggleFrozen(ctx context.Context, accountID string) (Account, error) {
	return e.setFrozen(ctx, accountID, func(current bool) bool { return !current })
}

func (e *Engine) setFrozen(ctx context.Context, accountID string, next func(bool) bool) (Account, error) {
	var account Account
	err := e.store.Update(ctx, []string{accountID}, func(tx Tx) error {
		acc, err := tx.Account(ctx, accountID)
		if err != nil {
			return err
		}
		acc.Frozen = next(acc.Frozen)
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		account = acc
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	e.logger.Info("ledger account freeze changed", "account_id", accountID, "frozen", account.Frozen)
	return account, nil
}

// History returns the newest transactions touching an account.
func (e *Engine) History(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	if _, err := e.store.Account(ctx, accountID); err != nil {
		return nil, err
	}
	return e.store.Transactions(ctx, accountID, limit)
}

// debit applies the outgoing checks in order (frozen, daily limit, minimum
// balance, sufficiency) and, when all pass, the debit and daily counter.
func (e *Engine) debit(acc *Account, amount decimal.Decimal, now time.Time) error {
	if acc.Frozen {
		return ErrAccountFrozen
	}

	used := e.dailyTransferred(*acc, now)
	if used.Add(amount).GreaterThan(acc.DailyLimit) {
		return ruleErrorf(ErrDailyLimitExceeded,
			"daily transfer limit of %s exceeded: %s already transferred today",
			FormatAmount(acc.DailyLimit, e.currency), FormatAmount(used, e.currency))
	}

	if acc.Kind == AccountKindSavings && acc.Balance.Sub(amount).LessThan(acc.MinimumBalance) {
		return ruleErrorf(ErrMinimumBalance,
			"savings account must maintain a minimum balance of %s",
			FormatAmount(acc.MinimumBalance, e.currency))
	}

	if acc.Balance.LessThan(amount) {
		return ruleErrorf(ErrInsufficientFunds,
			"insufficient funds: %s short",
			FormatAmount(amount.Sub(acc.Balance), e.currency))
	}

	acc.Balance = acc.Balance.Sub(amount)
	acc.DailyTransferred = used.Add(amount)
	acc.LastTransferDate = &now
	return nil
}

// dailyTransferred is the running daily total, zero when the last transfer
// happened on an earlier calendar day.
func (e *Engine) dailyTransferred(acc Account, now time.Time) decimal.Decimal {
	if acc.LastTransferDate == nil || !e.sameDay(*acc.LastTransferDate, now) {
		return decimal.Zero
	}
	return acc.DailyTransferred
}

func (e *Engine) sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(e.loc).Date()
	by, bm, bd := b.In(e.loc).Date()
	return ay == by && am == bm && ad == bd
}

func (e *Engine) insert(ctx context.Context, tx Tx, prefix string, rec Transaction) (Transaction, error) {
	rec.ID = uuid.NewString()
	rec.Status = StatusCompleted
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		rec.Reference = NewReference(prefix, rec.CreatedAt)
		err := tx.InsertTransaction(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrDuplicateReference) {
			return Transaction{}, err
		}
	}
	return Transaction{}, ErrDuplicateReference
}
