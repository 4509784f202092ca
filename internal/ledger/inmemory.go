package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultLockTimeout bounds how long Update waits for an account lock.
const DefaultLockTimeout = 5 * time.Second

// MemoryStore is a concurrency-safe in-memory Store. Each account has its own
// lock so that operations on disjoint accounts run in parallel.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	byNumber map[string]string
	txs      map[string]Transaction
	refs     map[string]struct{}
	order    []string
	locks    map[string]chan struct{}

	lockTimeout time.Duration
}

// NewMemoryStore creates an empty store. A non-positive lockTimeout selects
// DefaultLockTimeout.
func NewMemoryStore(lockTimeout time.Duration) *MemoryStore {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &MemoryStore{
		accounts:    make(map[string]Account),
		byNumber:    make(map[string]string),
		txs:         make(map[string]Transaction),
		refs:        make(map[string]struct{}),
		locks:       make(map[string]chan struct{}),
		lockTimeout: lockTimeout,
	}
}

func (s *MemoryStore) Account(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (s *MemoryStore) AccountByNumber(_ context.Context, number string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[number]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return s.accounts[id], nil
}

func (s *MemoryStore) AccountsByUser(_ context.Context, userID string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Account
	for _, acc := range s.accounts {
		if acc.UserID == userID {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byNumber[account.Number]; exists {
		return ErrDuplicateAccountNumber
	}
	if _, exists := s.accounts[account.ID]; exists {
		return fmt.Errorf("account %s already exists", account.ID)
	}
	s.accounts[account.ID] = account
	s.byNumber[account.Number] = account.ID
	return nil
}

// Update locks accountIDs in ascending order, runs fn against a staging Tx
// and applies the staged writes only when fn returns nil. Ids with no
// account get no lock; the Tx reports them as ErrAccountNotFound.
func (s *MemoryStore) Update(ctx context.Context, accountIDs []string, fn func(tx Tx) error) error {
	ids := lockOrder(accountIDs)

	tx := &memoryTx{
		store:    s,
		locked:   make(map[string]bool, len(ids)),
		missing:  make(map[string]bool),
		accounts: make(map[string]Account, len(ids)),
	}

	var held []chan struct{}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}()
	for _, id := range ids {
		tx.locked[id] = true
		lock, ok := s.lockFor(id)
		if !ok {
			tx.missing[id] = true
			continue
		}
		if err := s.acquire(ctx, lock); err != nil {
			return err
		}
		held = append(held, lock)
	}

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

func (s *MemoryStore) InterestCandidates(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, acc := range s.accounts {
		if acc.Kind == AccountKindSavings && acc.Balance.IsPositive() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CountOutgoingSince counts transactions debiting any account of userID
// created at or after since.
func (s *MemoryStore) CountOutgoingSince(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, tx := range s.txs {
		if tx.SourceAccountID == "" || tx.CreatedAt.Before(since) {
			continue
		}
		if acc, ok := s.accounts[tx.SourceAccountID]; ok && acc.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Transaction(_ context.Context, id string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx, nil
}

// Transactions returns the newest entries touching accountID first. A
// non-positive limit returns all of them.
func (s *MemoryStore) Transactions(_ context.Context, accountID string, limit int) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Transaction
	for i := len(s.order) - 1; i >= 0; i-- {
		tx := s.txs[s.order[i]]
		if tx.SourceAccountID != accountID && tx.TargetAccountID != accountID {
			continue
		}
		out = append(out, tx)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// lockFor returns the lock of an existing account, creating it on first
// use. It reports false for unknown ids so lookups never grow the map.
func (s *MemoryStore) lockFor(id string) (chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[id]; !exists {
		return nil, false
	}
	lock, ok := s.locks[id]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[id] = lock
	}
	return lock, true
}

func (s *MemoryStore) acquire(ctx context.Context, lock chan struct{}) error {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case lock <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lockOrder returns the distinct ids sorted ascending.
func lockOrder(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type memoryTx struct {
	store    *MemoryStore
	locked   map[string]bool
	missing  map[string]bool
	accounts map[string]Account
	txs      []Transaction
}

func (t *memoryTx) Account(ctx context.Context, id string) (Account, error) {
	if !t.locked[id] {
		return Account{}, fmt.Errorf("account %s is not locked by this update", id)
	}
	if t.missing[id] {
		return Account{}, ErrAccountNotFound
	}
	if acc, ok := t.accounts[id]; ok {
		return acc, nil
	}
	return t.store.Account(ctx, id)
}

func (t *memoryTx) SaveAccount(_ context.Context, account Account) error {
	if !t.locked[account.ID] {
		return fmt.Errorf("account %s is not locked by this update", account.ID)
	}
	if t.missing[account.ID] {
		return ErrAccountNotFound
	}
	t.accounts[account.ID] = account
	return nil
}

// InsertTransaction reserves the reference immediately so concurrent units
// cannot claim it; rollback releases it.
func (t *memoryTx) InsertTransaction(_ context.Context, tx Transaction) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.refs[tx.Reference]; exists {
		return ErrDuplicateReference
	}
	s.refs[tx.Reference] = struct{}{}
	t.txs = append(t.txs, tx)
	return nil
}

func (t *memoryTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, acc := range t.accounts {
		s.accounts[id] = acc
	}
	for _, tx := range t.txs {
		s.txs[tx.ID] = tx
		s.order = append(s.order, tx.ID)
	}
}

func (t *memoryTx) rollback() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range t.txs {
		delete(s.refs, tx.Reference)
	}
}
