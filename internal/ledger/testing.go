package ledger

import "github.com/shopspring/decimal"

// SeedAccount stores account with the given balance directly, bypassing the
// transaction log. Test helper for the in-memory store.
func SeedAccount(s *MemoryStore, account Account, balance string) Account {
	account.Balance = decimal.RequireFromString(balance)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
	s.byNumber[account.Number] = account.ID
	return account
}
