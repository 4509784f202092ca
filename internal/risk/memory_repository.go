package risk

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	entries []FraudLog
}

// NewMemoryRepository builds an in-memory fraud log store.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Create(_ context.Context, entry FraudLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]FraudLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []FraudLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].UserID != userID {
			continue
		}
		out = append(out, r.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
