package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind distinguishes savings accounts from current accounts.
type AccountKind string

const (
	AccountKindSavings AccountKind = "SAVINGS"
	AccountKindCurrent AccountKind = "CURRENT"
)

// TransactionKind identifies the ledger operation that produced a transaction.
type TransactionKind string

const (
	KindDeposit          TransactionKind = "DEPOSIT"
	KindWithdrawal       TransactionKind = "WITHDRAWAL"
	KindInternalTransfer TransactionKind = "INTERNAL_TRANSFER"
	KindExternalTransfer TransactionKind = "EXTERNAL_TRANSFER"
	KindTransfer         TransactionKind = "TRANSFER"
	KindInterest         TransactionKind = "INTEREST"
)

// StatusCompleted is the only status a transaction is ever created with.
const StatusCompleted = "COMPLETED"

// Account is the persisted state the engine validates and mutates.
type Account struct {
	ID                 string
	UserID             string
	Number             string
	Kind               AccountKind
	Balance            decimal.Decimal
	MinimumBalance     decimal.Decimal
	DailyLimit         decimal.Decimal
	MonthlyLimit       decimal.Decimal
	DailyTransferred   decimal.Decimal
	LastTransferDate   *time.Time
	InterestRate       decimal.Decimal
	Frozen             bool
	LastInterestCredit *time.Time
	CreatedAt          time.Time
}

// Transaction is an append-only ledger entry. Amount is always positive;
// direction is given by which of SourceAccountID and TargetAccountID is set.
type Transaction struct {
	ID              string
	Reference       string
	Amount          decimal.Decimal
	Kind            TransactionKind
	Status          string
	SourceAccountID string
	TargetAccountID string
	Description     string
	CreatedAt       time.Time
}

// InterestCredit reports one account credited by an interest run.
type InterestCredit struct {
	AccountID string
	Amount    decimal.Decimal
}

// Tx is the view of the store inside one atomic unit. Only the accounts
// locked by Store.Update may be read or saved through it.
type Tx interface {
	Account(ctx context.Context, id string) (Account, error)
	SaveAccount(ctx context.Context, account Account) error
	InsertTransaction(ctx context.Context, tx Transaction) error
}

// Store persists accounts and transactions. Update is the only path that
// mutates balances: it locks the given accounts in ascending id order, runs
// fn and commits every write made through the Tx, or none of them.
type Store interface {
	Account(ctx context.Context, id string) (Account, error)
	AccountByNumber(ctx context.Context, number string) (Account, error)
	AccountsByUser(ctx context.Context, userID string) ([]Account, error)
	CreateAccount(ctx context.Context, account Account) error
	Update(ctx context.Context, accountIDs []string, fn func(tx Tx) error) error
	InterestCandidates(ctx context.Context) ([]string, error)
	CountOutgoingSince(ctx context.Context, userID string, since time.Time) (int, error)
	Transaction(ctx context.Context, id string) (Transaction, error)
	Transactions(ctx context.Context, accountID string, limit int) ([]Transaction, error)
}
