package audit

import (
	"context"
	"fmt"
	"sync"

	"github.com/codenotary/immudb/pkg/client"
)

const immuTable = "ledger_audit"

// ImmuConfig holds the immudb connection settings.
type ImmuConfig struct {
	Address  string
	Port     int
	Username string
	Password string
	Database string
}

// ImmuRecorder mirrors audit events into an immudb table, whose history
// cannot be rewritten after the fact.
type ImmuRecorder struct {
	mu     sync.Mutex
	client client.ImmuClient
}

// NewImmuRecorder opens an immudb session and makes sure the audit table
// exists.
func NewImmuRecorder(ctx context.Context, cfg ImmuConfig) (*ImmuRecorder, error) {
	opts := client.DefaultOptions().
		WithAddress(cfg.Address).
		WithPort(cfg.Port).
		WithUsername(cfg.Username).
		WithPassword(cfg.Password).
		WithDatabase(cfg.Database)

	c := client.NewClient().WithOptions(opts)
	if err := c.OpenSession(ctx, []byte(cfg.Username), []byte(cfg.Password), cfg.Database); err != nil {
		return nil, fmt.Errorf("open immudb session: %w", err)
	}

	stmt := "CREATE TABLE IF NOT EXISTS " + immuTable + " (" +
		"id VARCHAR[36] NOT NULL, " +
		"action VARCHAR[40] NOT NULL, " +
		"user_id VARCHAR[64], " +
		"subject VARCHAR[64], " +
		"amount VARCHAR[32], " +
		"detail VARCHAR[256], " +
		"created_at INTEGER NOT NULL, " +
		"PRIMARY KEY id)"
	if _, err := c.SQLExec(ctx, stmt, nil); err != nil {
		_ = c.CloseSession(ctx)
		return nil, fmt.Errorf("create audit table: %w", err)
	}
	if _, err := c.SQLExec(ctx, "CREATE INDEX IF NOT EXISTS ON "+immuTable+"(user_id)", nil); err != nil {
		_ = c.CloseSession(ctx)
		return nil, fmt.Errorf("create audit index: %w", err)
	}

	return &ImmuRecorder{client: c}, nil
}

// Record implements Recorder.
func (r *ImmuRecorder) Record(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.client.SQLExec(ctx,
		"INSERT INTO "+immuTable+" (id, action, user_id, subject, amount, detail, created_at) "+
			"VALUES (@id, @action, @user_id, @subject, @amount, @detail, @created_at)",
		map[string]interface{}{
			"id":         e.ID,
			"action":     e.Action,
			"user_id":    e.UserID,
			"subject":    e.Subject,
			"amount":     e.Amount,
			"detail":     truncate(e.Detail, 256),
			"created_at": e.At.UnixNano(),
		})
	if err != nil {
		return fmt.Errorf("write audit event %s: %w", e.ID, err)
	}
	return nil
}

// Close ends the immudb session.
func (r *ImmuRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.CloseSession(ctx)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
