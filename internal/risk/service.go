package risk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sanbank/core/internal/logging"
)

// Service records and lists fraud attempts.
type Service struct {
	repo   Repository
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a fraud log service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{repo: repo, now: time.Now, logger: logger}
}

// LogFraudAttempt appends a fraud log entry. transactionID may be empty when
// the transaction was rejected before reaching the ledger.
func (s *Service) LogFraudAttempt(ctx context.Context, userID, transactionID string, score int, reason string) (FraudLog, error) {
	if userID == "" {
		return FraudLog{}, errors.New("user id is required")
	}
	entry := FraudLog{
		ID:            uuid.NewString(),
		UserID:        userID,
		TransactionID: transactionID,
		RiskScore:     score,
		Reason:        reason,
		IsFlagged:     score > flagThreshold,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return FraudLog{}, err
	}
	s.logger.Warn("fraud attempt logged",
		slog.String("user_id", userID),
		slog.String("transaction_id", transactionID),
		slog.Int("risk_score", score),
		slog.String("reason", reason),
		slog.Bool("flagged", entry.IsFlagged),
	)
	return entry, nil
}

// FraudLogs lists a user's fraud log, newest first.
func (s *Service) FraudLogs(ctx context.Context, userID string, limit int) ([]FraudLog, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}
