package risk

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists fraud logs.
type Repository interface {
	Create(ctx context.Context, entry FraudLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]FraudLog, error)
}

// PostgresRepository stores fraud logs in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed fraud log repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a fraud log entry.
func (r *PostgresRepository) Create(ctx context.Context, entry FraudLog) error {
	var txID any
	if entry.TransactionID != "" {
		txID = entry.TransactionID
	}
	_, err := r.db.Exec(ctx, `INSERT INTO fraud_logs (id, user_id, transaction_id, risk_score, reason, is_flagged, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, txID, entry.RiskScore, entry.Reason, entry.IsFlagged, entry.CreatedAt.UTC())
	return err
}

// ListByUser returns the newest entries for a user first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]FraudLog, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, COALESCE(transaction_id, ''), risk_score, reason, is_flagged, created_at
        FROM fraud_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FraudLog
	for rows.Next() {
		var (
			entry     FraudLog
			createdAt time.Time
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.TransactionID, &entry.RiskScore, &entry.Reason, &entry.IsFlagged, &createdAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = createdAt.UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}
