package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sanbank/core/internal/config"
	"github.com/sanbank/core/internal/infra"
	"github.com/sanbank/core/internal/logging"
)

// env is what every command needs: configuration, a logger and the database.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	db     *pgxpool.Pool
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, "ledgerctl")
	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) Close() {
	e.db.Close()
}
