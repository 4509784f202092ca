package customer

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists customers.
type Repository interface {
	Create(ctx context.Context, c Customer) error
	FindByID(ctx context.Context, id string) (Customer, error)
	FindByEmail(ctx context.Context, email string) (Customer, error)
	UpdatePIN(ctx context.Context, id string, hash []byte) error
	MarkKYCVerified(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed customer repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new customer.
func (r *PostgresRepository) Create(ctx context.Context, c Customer) error {
	_, err := r.db.Exec(ctx, `INSERT INTO customers (id, email, name, kyc_verified, pin_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, c.ID, c.Email, c.Name, c.KYCVerified, c.PINHash, c.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrCustomerExists
	}
	return err
}

const selectCustomer = `SELECT id, email, name, kyc_verified, pin_hash, created_at FROM customers`

// FindByID fetches a customer by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, selectCustomer+` WHERE id = $1`, id))
}

// FindByEmail fetches a customer by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, selectCustomer+` WHERE email = $1`, email))
}

// UpdatePIN stores a new transaction PIN hash.
func (r *PostgresRepository) UpdatePIN(ctx context.Context, id string, hash []byte) error {
	cmd, err := r.db.Exec(ctx, `UPDATE customers SET pin_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// MarkKYCVerified sets the KYC flag.
func (r *PostgresRepository) MarkKYCVerified(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE customers SET kyc_verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c         Customer
		createdAt time.Time
	)
	if err := row.Scan(&c.ID, &c.Email, &c.Name, &c.KYCVerified, &c.PINHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrCustomerNotFound
		}
		return Customer{}, err
	}
	c.CreatedAt = createdAt.UTC()
	return c, nil
}
