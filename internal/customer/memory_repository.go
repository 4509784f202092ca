package customer

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]Customer
	byEmail map[string]string
}

// NewMemoryRepository builds an in-memory customer store.
func NewMemoryRepository() Repository {
	return &memoryRepository{byID: make(map[string]Customer), byEmail: make(map[string]string)}
}

func (r *memoryRepository) Create(_ context.Context, c Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[c.Email]; exists {
		return ErrCustomerExists
	}
	if _, exists := r.byID[c.ID]; exists {
		return ErrCustomerExists
	}
	r.byID[c.ID] = c
	r.byEmail[c.Email] = c.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	return c, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) UpdatePIN(_ context.Context, id string, hash []byte) error {
	return r.update(id, func(c *Customer) { c.PINHash = hash })
}

func (r *memoryRepository) MarkKYCVerified(_ context.Context, id string) error {
	return r.update(id, func(c *Customer) { c.KYCVerified = true })
}

func (r *memoryRepository) update(id string, fn func(*Customer)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return ErrCustomerNotFound
	}
	fn(&c)
	r.byID[id] = c
	return nil
}
