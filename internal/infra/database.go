package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool opens the ledger's connection pool. maxConns caps the pool
// when positive. Every connection runs in UTC with a statement timeout so a
// stuck row lock cannot hold a request forever.
func NewPostgresPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	rt := cfg.ConnConfig.RuntimeParams
	if rt["timezone"] == "" {
		rt["timezone"] = "UTC"
	}
	if rt["statement_timeout"] == "" {
		rt["statement_timeout"] = "30000"
	}
	if rt["application_name"] == "" {
		rt["application_name"] = "sanbank-ledger"
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return conn.Ping(ctx)
	}

	var pool *pgxpool.Pool
	err = retryConnect(ctx, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}
