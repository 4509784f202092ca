package ledger

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_UpdateRollsBackOnError(t *testing.T) {
	store := NewMemoryStore(time.Second)
	ctx := context.Background()
	SeedAccount(store, current("acc-a"), "100")

	boom := errors.New("boom")
	err := store.Update(ctx, []string{"acc-a"}, func(tx Tx) error {
		acc, err := tx.Account(ctx, "acc-a")
		if err != nil {
			return err
		}
		acc.Balance = dec("0")
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, Transaction{ID: "tx-1", Reference: "WTH-1-AAAA", SourceAccountID: "acc-a", Amount: dec("100")}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	acc, _ := store.Account(ctx, "acc-a")
	if !acc.Balance.Equal(dec("100")) {
		t.Fatalf("expected balance untouched, got %s", acc.Balance)
	}
	if _, err := store.Transaction(ctx, "tx-1"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected rolled back transaction, got %v", err)
	}

	// the reference is released and can be used again
	err = store.Update(ctx, []string{"acc-a"}, func(tx Tx) error {
		return tx.InsertTransaction(ctx, Transaction{ID: "tx-2", Reference: "WTH-1-AAAA", SourceAccountID: "acc-a", Amount: dec("1")})
	})
	if err != nil {
		t.Fatalf("reuse released reference: %v", err)
	}
}

func TestMemoryStore_DuplicateReference(t *testing.T) {
	store := NewMemoryStore(time.Second)
	ctx := context.Background()
	SeedAccount(store, current("acc-a"), "100")

	insert := func(id string) error {
		return store.Update(ctx, []string{"acc-a"}, func(tx Tx) error {
			return tx.InsertTransaction(ctx, Transaction{ID: id, Reference: "DEP-1-BBBB", TargetAccountID: "acc-a", Amount: dec("1")})
		})
	}
	if err := insert("tx-1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := insert("tx-2"); !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected duplicate reference, got %v", err)
	}
}

func TestMemoryStore_LockTimeout(t *testing.T) {
	store := NewMemoryStore(50 * time.Millisecond)
	ctx := context.Background()
	SeedAccount(store, current("acc-a"), "100")

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.Update(ctx, []string{"acc-a"}, func(tx Tx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := store.Update(ctx, []string{"acc-a"}, func(tx Tx) error { return nil })
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
	if !IsRetryable(err) {
		t.Fatalf("lock timeout must be retryable")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("holder failed: %v", err)
	}
	if err := store.Update(ctx, []string{"acc-a"}, func(tx Tx) error { return nil }); err != nil {
		t.Fatalf("lock not released: %v", err)
	}
}

func TestMemoryStore_TxRejectsUnlockedAccount(t *testing.T) {
	store := NewMemoryStore(time.Second)
	ctx := context.Background()
	SeedAccount(store, current("acc-a"), "100")
	SeedAccount(store, current("acc-b"), "100")

	err := store.Update(ctx, []string{"acc-a"}, func(tx Tx) error {
		_, err := tx.Account(ctx, "acc-b")
		return err
	})
	if err == nil {
		t.Fatalf("expected error reading an account outside the lock set")
	}
}

func TestMemoryStore_CreateAccountDuplicateNumber(t *testing.T) {
	store := NewMemoryStore(time.Second)
	ctx := context.Background()
	if err := store.CreateAccount(ctx, NewAccount("acc-1", "u1", "62000000001", AccountKindSavings, testNow)); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := store.CreateAccount(ctx, NewAccount("acc-2", "u2", "62000000001", AccountKindSavings, testNow))
	if !errors.Is(err, ErrDuplicateAccountNumber) {
		t.Fatalf("expected duplicate number, got %v", err)
	}
	acc, err := store.AccountByNumber(ctx, "62000000001")
	if err != nil || acc.ID != "acc-1" {
		t.Fatalf("unexpected lookup %+v, %v", acc, err)
	}
}

func TestLockOrder(t *testing.T) {
	got := lockOrder([]string{"c", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMemoryStore_CountOutgoingSince(t *testing.T) {
	now := testNow
	engine, store := newTestEngine(t, &now)
	ctx := context.Background()
	SeedAccount(store, current("acc-a"), "1000")
	SeedAccount(store, current("acc-b"), "0")

	for i := 0; i < 3; i++ {
		if _, _, err := engine.Withdraw(ctx, "acc-a", dec("10"), ""); err != nil {
			t.Fatalf("withdraw: %v", err)
		}
	}
	if _, _, err := engine.Deposit(ctx, "acc-a", dec("10"), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	count, err := store.CountOutgoingSince(ctx, "user-acc-a", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 outgoing, got %d", count)
	}
	count, _ = store.CountOutgoingSince(ctx, "user-acc-a", now.Add(time.Minute))
	if count != 0 {
		t.Fatalf("expected 0 outgoing after window, got %d", count)
	}
}

func TestMemoryStore_UnknownAccountsTakeNoLock(t *testing.T) {
	store := NewMemoryStore(time.Second)
	ctx := context.Background()
	SeedAccount(store, current("acc-a"), "100")

	for i := 0; i < 3; i++ {
		err := store.Update(ctx, []string{"acc-a", "ghost"}, func(tx Tx) error {
			_, err := tx.Account(ctx, "ghost")
			return err
		})
		if !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("expected account not found, got %v", err)
		}
	}
	err := store.Update(ctx, []string{"ghost"}, func(tx Tx) error {
		return tx.SaveAccount(ctx, current("ghost"))
	})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected save of unknown account to fail, got %v", err)
	}

	store.mu.RLock()
	n := len(store.locks)
	store.mu.RUnlock()
	if n != 1 {
		t.Fatalf("expected a lock only for acc-a, got %d", n)
	}
}
