package infra

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded migrations that have not run yet, each in its
// own transaction, and returns the versions it applied.
func Migrate(ctx context.Context, db *pgxpool.Pool) ([]string, error) {
	const ddl = `
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version    TEXT PRIMARY KEY,
            applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`
	if _, err := db.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var applied []string
	for _, file := range files {
		ok, err := apply(ctx, db, file)
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, file)
		}
	}
	return applied, nil
}

func apply(ctx context.Context, db *pgxpool.Pool, file string) (bool, error) {
	body, err := migrations.ReadFile(file)
	if err != nil {
		return false, fmt.Errorf("read migration %q: %w", file, err)
	}

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin tx for migration %q: %w", file, err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Serialises concurrent migrators on the version row.
	tag, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, file)
	if err != nil {
		return false, fmt.Errorf("record migration %q: %w", file, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, string(body)); err != nil {
		return false, fmt.Errorf("execute migration %q: %w", file, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %q: %w", file, err)
	}
	return true, nil
}
