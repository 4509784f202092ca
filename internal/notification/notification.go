package notification

import (
	"context"
	"log/slog"
	"time"
)

const (
	// KindTransfer is sent to the payer after a successful transfer.
	KindTransfer = "transfer"
	// KindLimitsUpdated follows a change of transfer limits.
	KindLimitsUpdated = "limits_updated"
	// KindPINUpdated follows setting or changing the transaction PIN.
	KindPINUpdated = "pin_updated"
	// KindInterestCredited follows a monthly interest credit.
	KindInterestCredited = "interest_credited"
	// KindLoanApplied confirms a submitted loan application.
	KindLoanApplied = "loan_applied"
)

// Display types understood by clients.
const (
	TypeSuccess = "SUCCESS"
	TypeInfo    = "INFO"
	TypeWarning = "WARNING"
)

// Message describes a notification payload.
type Message struct {
	ID        string
	Kind      string
	UserID    string
	Title     string
	Body      string
	Type      string
	Link      string
	Read      bool
	CreatedAt time.Time
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "user_id", message.UserID, "title", message.Title, "body", message.Body)
	return nil
}
