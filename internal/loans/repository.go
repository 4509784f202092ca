package loans

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists loan applications.
type Repository interface {
	Create(ctx context.Context, loan Loan) error
	ListByUser(ctx context.Context, userID string) ([]Loan, error)
}

// PostgresRepository stores loans in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed loan repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a loan.
func (r *PostgresRepository) Create(ctx context.Context, l Loan) error {
	_, err := r.db.Exec(ctx, `INSERT INTO loans (id, user_id, type, amount, interest_rate, tenure_months,
                           emi_amount, remaining_amount, status, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7::numeric, $8::numeric, $9, $10)`,
		l.ID, l.UserID, string(l.Type), l.Amount.String(), l.InterestRate.String(), l.TenureMonths,
		l.EMI.String(), l.Remaining.String(), l.Status, l.CreatedAt.UTC())
	return err
}

// ListByUser returns the user's loans, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Loan, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, type, amount::text, interest_rate::text, tenure_months,
               emi_amount::text, remaining_amount::text, status, created_at
        FROM loans WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		var (
			l         Loan
			kind      string
			createdAt time.Time
		)
		if err := rows.Scan(&l.ID, &l.UserID, &kind, &l.Amount, &l.InterestRate, &l.TenureMonths,
			&l.EMI, &l.Remaining, &l.Status, &createdAt); err != nil {
			return nil, err
		}
		l.Type = Type(kind)
		l.CreatedAt = createdAt.UTC()
		out = append(out, l)
	}
	return out, rows.Err()
}
