package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sanbank/core/internal/ledger"
)

// Actions recorded in the audit trail.
const (
	ActionTransaction   = "LEDGER_TRANSACTION"
	ActionKYCVerified   = "KYC_VERIFIED"
	ActionPINChanged    = "PIN_CHANGED"
	ActionAccountFrozen = "ACCOUNT_FREEZE_CHANGED"
	ActionInterestRun   = "INTEREST_RUN"
	ActionLoanApplied   = "LOAN_APPLIED"
)

// Event is one entry of the tamper-evident audit trail.
type Event struct {
	ID      string
	Action  string
	UserID  string
	Subject string
	Amount  string
	Detail  string
	At      time.Time
}

// Recorder appends audit events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// NewEvent fills in the id and timestamp of an event.
func NewEvent(action, userID, subject, detail string) Event {
	return Event{ID: uuid.NewString(), Action: action, UserID: userID, Subject: subject, Detail: detail, At: time.Now().UTC()}
}

// TransactionEvent describes a committed ledger transaction.
func TransactionEvent(userID string, tx ledger.Transaction) Event {
	return Event{
		ID:      tx.ID,
		Action:  ActionTransaction,
		UserID:  userID,
		Subject: tx.Reference,
		Amount:  tx.Amount.StringFixed(2),
		Detail:  string(tx.Kind) + " " + tx.SourceAccountID + "->" + tx.TargetAccountID,
		At:      tx.CreatedAt.UTC(),
	}
}

// LogRecorder writes audit events to the structured logger.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder builds a recorder backed by logger.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record implements Recorder.
func (r *LogRecorder) Record(_ context.Context, e Event) error {
	r.logger.Info("audit",
		slog.String("audit_id", e.ID),
		slog.String("action", e.Action),
		slog.String("user_id", e.UserID),
		slog.String("subject", e.Subject),
		slog.String("amount", e.Amount),
		slog.String("detail", e.Detail),
		slog.Time("at", e.At),
	)
	return nil
}

// Safe wraps a Recorder so that failures are logged instead of returned.
// Money movement is never rolled back because the audit sink is down.
type Safe struct {
	next   Recorder
	logger *slog.Logger
}

// NewSafe wraps next.
func NewSafe(next Recorder, logger *slog.Logger) *Safe {
	return &Safe{next: next, logger: logger}
}

// Record implements Recorder and always returns nil.
func (s *Safe) Record(ctx context.Context, e Event) error {
	if err := s.next.Record(ctx, e); err != nil {
		s.logger.Error("audit record failed", slog.String("audit_id", e.ID), slog.String("action", e.Action), slog.Any("error", err))
	}
	return nil
}
