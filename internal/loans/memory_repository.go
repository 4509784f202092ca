package loans

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	loans []Loan
}

// NewMemoryRepository builds an in-memory loan store.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Create(_ context.Context, l Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loans = append(r.loans, l)
	return nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Loan
	for _, l := range r.loans {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
