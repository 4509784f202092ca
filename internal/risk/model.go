package risk

import "time"

// FraudLog is an append-only record of a transaction that scored above the
// review threshold. TransactionID is empty for rejected attempts.
type FraudLog struct {
	ID            string
	UserID        string
	TransactionID string
	RiskScore     int
	Reason        string
	IsFlagged     bool
	CreatedAt     time.Time
}
