package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when marking an unknown notification.
var ErrNotFound = errors.New("notification not found")

// Store persists notifications for the in-app inbox.
type Store interface {
	Save(ctx context.Context, message Message) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Message, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// StoreNotifier delivers by saving into a Store.
type StoreNotifier struct {
	store Store
	now   func() time.Time
}

// NewStoreNotifier builds a notifier writing to store.
func NewStoreNotifier(store Store) *StoreNotifier {
	return &StoreNotifier{store: store, now: time.Now}
}

// Send assigns an id and timestamp when missing and saves the message.
func (n *StoreNotifier) Send(ctx context.Context, message Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = n.now().UTC()
	}
	if message.Type == "" {
		message.Type = TypeInfo
	}
	return n.store.Save(ctx, message)
}

type memoryStore struct {
	mu       sync.RWMutex
	messages map[string]Message
}

// NewMemoryStore builds an in-memory notification store.
func NewMemoryStore() Store {
	return &memoryStore{messages: make(map[string]Message)}
}

func (s *memoryStore) Save(_ context.Context, message Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[message.ID] = message
	return nil
}

func (s *memoryStore) ListByUser(_ context.Context, userID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Message
	for _, m := range s.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) MarkRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok || m.UserID != userID {
		return ErrNotFound
	}
	m.Read = true
	s.messages[id] = m
	return nil
}

func (s *memoryStore) MarkAllRead(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.messages {
		if m.UserID == userID && !m.Read {
			m.Read = true
			s.messages[id] = m
		}
	}
	return nil
}

// PostgresStore keeps notifications in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed notification store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save inserts a notification.
func (s *PostgresStore) Save(ctx context.Context, m Message) error {
	_, err := s.db.Exec(ctx, `INSERT INTO notifications (id, user_id, kind, title, message, type, link, read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.UserID, m.Kind, m.Title, m.Body, m.Type, m.Link, m.Read, m.CreatedAt.UTC())
	return err
}

// ListByUser returns the newest notifications first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]Message, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.db.Query(ctx, `SELECT id, user_id, kind, title, message, type, link, read, created_at
        FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Kind, &m.Title, &m.Body, &m.Type, &m.Link, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead flags one of the user's notifications as read.
func (s *PostgresStore) MarkRead(ctx context.Context, userID, id string) error {
	cmd, err := s.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of the user as read.
func (s *PostgresStore) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	return err
}
