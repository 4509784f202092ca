package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sanbank/core/internal/apierr"
	"github.com/sanbank/core/internal/audit"
	"github.com/sanbank/core/internal/config"
	"github.com/sanbank/core/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app    *fiber.App
	cfg    config.Config
	closer routes.Closer
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// db and cache may be nil in dev, recorder may be nil everywhere.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, recorder audit.Recorder, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: apierr.Handler(logger),
	})

	closer, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger, Recorder: recorder})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, closer: closer}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests, waits for in-flight ones and then
// drains background work.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	return errors.Join(err, s.closer(ctx))
}
