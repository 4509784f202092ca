package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists accounts and transactions in PostgreSQL. Update
// takes row locks with SELECT ... FOR UPDATE inside one database transaction.
type PostgresStore struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresStore constructs a Postgres-backed store. A non-positive
// lockTimeout selects DefaultLockTimeout.
func NewPostgresStore(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresStore {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &PostgresStore{db: db, lockTimeout: lockTimeout}
}

const selectAccount = `
        SELECT id, user_id, account_number, kind, balance::text, minimum_balance::text,
               daily_limit::text, monthly_limit::text, daily_transferred::text,
               last_transfer_date, interest_rate::text, frozen, last_interest_credit, created_at
        FROM accounts`

const selectTransaction = `
        SELECT id, reference, amount::text, kind, status,
               COALESCE(source_account_id, ''), COALESCE(target_account_id, ''),
               description, created_at
        FROM transactions`

func (s *PostgresStore) Account(ctx context.Context, id string) (Account, error) {
	acc, err := scanAccount(s.db.QueryRow(ctx, selectAccount+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, mapError(err)
	}
	return acc, nil
}

func (s *PostgresStore) AccountByNumber(ctx context.Context, number string) (Account, error) {
	acc, err := scanAccount(s.db.QueryRow(ctx, selectAccount+` WHERE account_number = $1`, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, mapError(err)
	}
	return acc, nil
}

func (s *PostgresStore) AccountsByUser(ctx context.Context, userID string) ([]Account, error) {
	rows, err := s.db.Query(ctx, selectAccount+` WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account Account) error {
	const query = `
        INSERT INTO accounts (id, user_id, account_number, kind, balance, minimum_balance,
                              daily_limit, monthly_limit, daily_transferred, last_transfer_date,
                              interest_rate, frozen, last_interest_credit, created_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric,
                $10, $11::numeric, $12, $13, $14)`
	_, err := s.db.Exec(ctx, query,
		account.ID, account.UserID, account.Number, string(account.Kind),
		account.Balance.String(), account.MinimumBalance.String(),
		account.DailyLimit.String(), account.MonthlyLimit.String(), account.DailyTransferred.String(),
		account.LastTransferDate, account.InterestRate.String(), account.Frozen,
		account.LastInterestCredit, account.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "accounts_account_number_key" {
		return ErrDuplicateAccountNumber
	}
	return mapError(err)
}

// Update locks the rows of accountIDs in id order within a single database
// transaction, runs fn and commits. Writes made through the Tx are discarded
// when fn fails.
func (s *PostgresStore) Update(ctx context.Context, accountIDs []string, fn func(tx Tx) error) error {
	ids := lockOrder(accountIDs)

	dbTx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapError(err)
	}
	defer dbTx.Rollback(ctx) // nolint:errcheck

	if _, err := dbTx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
		return mapError(err)
	}

	rows, err := dbTx.Query(ctx, selectAccount+` WHERE id = ANY($1) ORDER BY id COLLATE "C" FOR UPDATE`, ids)
	if err != nil {
		return mapError(err)
	}
	tx := &postgresTx{
		tx:       dbTx,
		locked:   make(map[string]bool, len(ids)),
		accounts: make(map[string]Account, len(ids)),
	}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			rows.Close()
			return err
		}
		tx.accounts[acc.ID] = acc
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return mapError(err)
	}
	for _, id := range ids {
		tx.locked[id] = true
	}

	if err := fn(tx); err != nil {
		return err
	}
	return mapError(dbTx.Commit(ctx))
}

func (s *PostgresStore) InterestCandidates(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM accounts WHERE kind = $1 AND balance > 0 ORDER BY id COLLATE "C"`, string(AccountKindSavings))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) CountOutgoingSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const query = `
        SELECT COUNT(*)
        FROM transactions t
        INNER JOIN accounts a ON a.id = t.source_account_id
        WHERE a.user_id = $1 AND t.created_at >= $2`
	var count int
	if err := s.db.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func (s *PostgresStore) Transaction(ctx context.Context, id string) (Transaction, error) {
	rec, err := scanTransaction(s.db.QueryRow(ctx, selectTransaction+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return Transaction{}, mapError(err)
	}
	return rec, nil
}

func (s *PostgresStore) Transactions(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.db.Query(ctx, selectTransaction+`
        WHERE source_account_id = $1 OR target_account_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2`, accountID, lim)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type postgresTx struct {
	tx       pgx.Tx
	locked   map[string]bool
	accounts map[string]Account
}

func (t *postgresTx) Account(_ context.Context, id string) (Account, error) {
	if !t.locked[id] {
		return Account{}, fmt.Errorf("account %s is not locked by this update", id)
	}
	acc, ok := t.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (t *postgresTx) SaveAccount(ctx context.Context, account Account) error {
	if !t.locked[account.ID] {
		return fmt.Errorf("account %s is not locked by this update", account.ID)
	}
	const query = `
        UPDATE accounts
        SET balance = $2::numeric, daily_limit = $3::numeric, monthly_limit = $4::numeric,
            daily_transferred = $5::numeric, last_transfer_date = $6, frozen = $7,
            last_interest_credit = $8
        WHERE id = $1`
	if _, err := t.tx.Exec(ctx, query,
		account.ID, account.Balance.String(), account.DailyLimit.String(), account.MonthlyLimit.String(),
		account.DailyTransferred.String(), account.LastTransferDate, account.Frozen, account.LastInterestCredit,
	); err != nil {
		return mapError(err)
	}
	t.accounts[account.ID] = account
	return nil
}

// InsertTransaction skips on a reference collision instead of failing, so
// the surrounding database transaction stays usable for a retry.
func (t *postgresTx) InsertTransaction(ctx context.Context, rec Transaction) error {
	const query = `
        INSERT INTO transactions (id, reference, amount, kind, status, source_account_id,
                                  target_account_id, description, created_at)
        VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (reference) DO NOTHING
        RETURNING id`
	var id string
	err := t.tx.QueryRow(ctx, query,
		rec.ID, rec.Reference, rec.Amount.String(), string(rec.Kind), rec.Status,
		nullable(rec.SourceAccountID), nullable(rec.TargetAccountID), rec.Description, rec.CreatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateReference
	}
	return mapError(err)
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acc  Account
		kind string
	)
	err := row.Scan(
		&acc.ID, &acc.UserID, &acc.Number, &kind, &acc.Balance, &acc.MinimumBalance,
		&acc.DailyLimit, &acc.MonthlyLimit, &acc.DailyTransferred,
		&acc.LastTransferDate, &acc.InterestRate, &acc.Frozen, &acc.LastInterestCredit, &acc.CreatedAt,
	)
	acc.Kind = AccountKind(kind)
	return acc, err
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		rec  Transaction
		kind string
	)
	err := row.Scan(
		&rec.ID, &rec.Reference, &rec.Amount, &kind, &rec.Status,
		&rec.SourceAccountID, &rec.TargetAccountID, &rec.Description, &rec.CreatedAt,
	)
	rec.Kind = TransactionKind(kind)
	return rec, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// mapError translates lock and serialization failures into the ledger's
// retryable errors and marks connectivity failures as ErrStorageUnavailable.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return ErrLockTimeout
		case "40001", "40P01":
			return ErrConcurrencyConflict
		}
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
