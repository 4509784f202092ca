package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sanbank/core/internal/accounts"
	"github.com/sanbank/core/internal/audit"
	"github.com/sanbank/core/internal/config"
	"github.com/sanbank/core/internal/customer"
	"github.com/sanbank/core/internal/funding"
	"github.com/sanbank/core/internal/interest"
	"github.com/sanbank/core/internal/ledger"
	"github.com/sanbank/core/internal/loans"
	"github.com/sanbank/core/internal/middleware"
	"github.com/sanbank/core/internal/notification"
	"github.com/sanbank/core/internal/payments"
	"github.com/sanbank/core/internal/risk"
)

const notificationBuffer = 256

// Deps aggregates shared dependencies required to wire routes. Recorder is
// optional and defaults to the structured logger.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Recorder audit.Recorder
}

// Closer releases what Setup started. It runs after the HTTP server stopped
// accepting requests.
type Closer func(ctx context.Context) error

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (Closer, error) {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.AccessLog(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var (
		store        ledger.Store
		customerRepo customer.Repository
		fraudRepo    risk.Repository
		loanRepo     loans.Repository
		inbox        notification.Store
	)
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB, d.Cfg.LockTimeout)
		customerRepo = customer.NewPostgresRepository(d.DB)
		fraudRepo = risk.NewPostgresRepository(d.DB)
		loanRepo = loans.NewPostgresRepository(d.DB)
		inbox = notification.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewMemoryStore(d.Cfg.LockTimeout)
		customerRepo = customer.NewMemoryRepository()
		fraudRepo = risk.NewMemoryRepository()
		loanRepo = loans.NewMemoryRepository()
		inbox = notification.NewMemoryStore()
	}

	recorder := d.Recorder
	if recorder == nil {
		recorder = audit.NewLogRecorder(d.Logger)
	}
	recorder = audit.NewSafe(recorder, d.Logger)

	notifier := notification.NewAsync(notification.Fanout{
		notification.NewStoreNotifier(inbox),
		notification.NewLoggerNotifier(d.Logger),
	}, notificationBuffer, d.Logger)

	// Services and handlers
	engine := ledger.NewEngine(store,
		ledger.WithLocation(d.Cfg.Location),
		ledger.WithCurrency(d.Cfg.Currency),
		ledger.WithLogger(d.Logger),
	)
	accountSvc := accounts.NewService(engine, notifier, recorder, d.Logger)
	customerSvc := customer.NewService(customerRepo, accountSvc, notifier, recorder, d.Logger)
	fraudSvc := risk.NewService(fraudRepo, d.Logger)
	paymentSvc := payments.NewService(payments.Deps{
		Engine:   engine,
		Accounts: accountSvc,
		Pins:     customerSvc,
		Assessor: risk.NewHeuristicAssessor(store, risk.WithLocation(d.Cfg.Location)),
		Policy:   risk.DefaultPolicy,
		Fraud:    fraudSvc,
		Notifier: notifier,
		Recorder: recorder,
		Logger:   d.Logger,
	})
	fundingSvc := funding.NewService(engine, accountSvc, recorder, d.Logger)
	interestJob := interest.NewJob(engine, notifier, recorder, d.Logger)
	loanSvc := loans.NewService(loanRepo, customerSvc, notifier, recorder, engine.Currency(), d.Logger)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID := middleware.RequestIDFrom(c)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Operator routes, guarded by the admin token instead of a user identity.
	RegisterAdminRoutes(api, interest.NewHandler(interestJob), d.Cfg.AdminToken)

	// Customer routes
	protected := api.Group("", middleware.Identity([]byte(d.Cfg.IdentitySecret)))
	moneyMoving := []fiber.Handler{
		middleware.RateLimit(d.Cache, "money", d.Cfg.TransferRateLimit, d.Logger),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	}
	RegisterCustomerRoutes(protected, customer.NewHandler(customerSvc))
	RegisterAccountRoutes(protected, accounts.NewHandler(accountSvc))
	RegisterFundingRoutes(protected, funding.NewHandler(fundingSvc), moneyMoving...)
	RegisterPaymentRoutes(protected, payments.NewHandler(paymentSvc), moneyMoving...)
	RegisterRiskRoutes(protected, risk.NewHandler(fraudSvc))
	RegisterNotificationRoutes(protected, notification.NewHandler(inbox))
	RegisterLoanRoutes(protected, loans.NewHandler(loanSvc))

	return notifier.Close, nil
}
