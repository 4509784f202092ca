package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, now *time.Time) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(time.Second)
	clock := func() time.Time { return *now }
	return NewEngine(store, WithClock(clock), WithLocation(time.UTC)), store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func savings(id string) Account {
	return NewAccount(id, "user-"+id, "62"+id, AccountKindSavings, testNow)
}

func current(id string) Account {
	return NewAccount(id, "user-"+id, "62"+id, AccountKindCurrent, testNow)
}

func TestWithdraw_MinimumBalance(t *testing.T) {
	now := testNow
	engine, store := newTestEngine(t, &now)
	ctx := context.Background()
	SeedAccount(store, savings("acc-a"), "5000")

	_, _, err := engine.Withdraw(ctx, "acc-a", dec("4200"), "")
	if !errors.Is(err, ErrMinimumBalance) {
		t.Fatalf("expected minimum balance violation, got %v", err)
	}
	if !strings.Contains(err.Error(), "₹1,000.00") {
		t.Fatalf("expected formatted minimum in message, got %q", err.Error())
	}

	acc, rec, err := engine.Withdraw(ctx, "acc-a", dec("3500"), "atm")
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if !acc.Balance.Equal(dec("1500")) {
		t.Fatalf("expected balance 1500, got %s", acc.Balance)
	}
	if rec.Kind != KindWithdrawal || rec.SourceAccountID != "acc-a" || rec.TargetAccountID != "" {
		t.Fatalf("unexpected transaction %+v", rec)
	}
	if ReferencePrefix(rec.Reference) != PrefixWithdrawal {
		t.Fatalf("unexpected reference %s", rec.Reference)
	}
}

func TestTransfer_DailyLimit(t *testing.T) {
	now := testNow
	engine, store := newTestEngine(t, &now)
	ctx := context.Background()
	SeedAccount(store, current("acc-a"), "500000")
	SeedAccount(store, current("acc-b"), "0")

	rec, err := engine.Transfer(ctx, TransferInput{SourceAccountID: "acc-a", TargetAccountID: "acc-b", Amount: dec("200000")})
	if err != nil {
		t.Fatalf("first transfer failed: %v", err)
	}
	if rec.Kind != KindInternalTransfer {
		t.Fatalf("expected default kind INTERNAL_TRANSFER, got %s", rec.Kind)
	}

	_, err = engine.Transfer(ctx, TransferInput{SourceAccountID: "acc-a", TargetAccountID: "acc-b", Amount: dec("1")})
	if !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("expected daily limit exceeded, got %v", err)
	}
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) || !strings.Contains(ruleErr.Detail, "₹2,00,000.00") && !strings.Contains(ruleErr.Detail, "₹200,000.00") {
		t.Fatalf("expected limit in detail, got %v", err)
	}

	src, _ := store.Account(ctx, "acc-a")
	dst, _ := store.Account(ctx, "acc-b")
	if !src.Balance.Equal(dec("300000")) || !dst.Balance.Equal(dec("200000")) {
		t.Fatalf("unexpected balances %s / %s", src.Balance, dst.Balance)
	}
}

func TestTransfer_DailyCounterResetsNextDay(t *testing.T) {
	now := testNow
	engine, store := newTestEngine(t, &now)
	ctx := context.Background()
	SeedAccount(store, current("acc-a"), "500000")
	SeedAccount(store, current("acc-b"), "0")

	in := TransferInput{SourceAccountID: "acc-a", TargetAccountID: "acc-b", Amount: dec("150000")}
	if _, err := engine.Transfer(ctx, in); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if _, err := engine.Transfer(ctx, in); !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("expected daily limit exceeded, got %v", err)
	}

	now = testNow.Add(24 * time.Hour)
	if _, err := engine.Transfer(ctx, in); err != nil {
		t.Fatalf("transfer on next day failed: %v", err)
	}
	src, _ := store.Account(ctx, "acc-a")
	if !src.DailyTransferred.Equal(dec("150000")) {
		t.Fatalf("expected counter reset to 150000, got %s", src.DailyTransferred)
	}
}

func TestTransfer_ValidationOrder(t *testing.T) {
	now := testNow
	engine, store := newTestEngine(t, &now)
	ctx := context.Background()

	frozen := current("acc-frozen")
	frozen.Frozen = true
	SeedAccount(store, frozen, "1000")
	SeedAccount(store, current("acc-a"), "100")
	SeedAccount(store, current("acc-b"), "0")
	lockedTarget := current("acc-c")
	lockedTarget.Frozen = true
	SeedAccount(store, lockedTarget, "0")

	cases := []struct {
		name string
		in   TransferInput
		want error
	}{
		{"frozen source", TransferInput{SourceAccountID: "acc-frozen", TargetAccountID: "acc-b", Amount: dec("10")}, ErrAccountFrozen},
		{"insufficient", TransferInput{SourceAccountID: "acc-a", TargetAccountID: "acc-b", Amount: dec("150")}, ErrInsufficientFunds},
		{"missing target", TransferInput{SourceAccountID: "acc-a", TargetAccountID: "missing", Amount: dec("10")}, ErrTargetAccountNotFound},
		{"frozen target", TransferInput{SourceAccountID: "acc-a", TargetAccountID: "acc-c", Amount: dec("10")}, ErrTargetAccountFrozen},
		{"missing source", TransferInput{SourceAccountID: "missing", TargetAccountID: "acc-b", Amount: dec("10")}, ErrAccountNotFound},
		{"same account", TransferInput{SourceAccountID: "acc-a", TargetAccountID: "acc-a", Amount: dec("10")}, ErrSameAccount},
		{"zero amount", TransferInput{SourceAccountID: "acc-a", TargetAccountID: "acc-b", Amount: dec("0")}, ErrInvalidAmount},
		{"sub-minor amount", TransferInput{SourceAccountID: "acc-a", TargetAccountID: "acc-b", Amount: dec("0.001")}, ErrInvalidAmount},
		{"bad kind", TransferInput{SourceAccountID: "acc-a", TargetAccountID: "acc-b", Amount: dec("10"), Kind: KindDeposit}, ErrInvalidKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.Transfer(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	a, _ := store.Account(ctx, "acc-a")
	if !a.Balance.Equal(dec("100")) || !a.DailyTransferred.IsZero() {
		t.Fatalf("rejected transfers must not mutate source, got %+v", a)
	}
	txs, _ := store.Transactions(ctx, "acc-a", 0)
	if len(txs) != 0 {
		t.Fatalf("rejected transfers must not be recorded, got %d", len(txs))
	}
}

func TestDeposit_AllowedOnFrozenAccount(t *testing.T) {
	now := testNow
	engine, store := newTestEngine(t, &now)
	ctx := context.Background()
	acc := savings("acc-a")
	acc.Frozen = true
	SeedAccount(store, acc, "0")

	got, rec, err := engine.Deposit(ctx, "acc-a", dec("2500.50"), "cash")
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if !got.Balance.Equal(dec("2500.50")) {
		t.Fatalf("unexpected balance %s", got.Balance)
	}
	if rec.TargetAccountID != "acc-a" || rec.SourceAccountID != "" || rec.Status != StatusCompleted {
		t.Fatalf("unexpected record %+v", rec)
	}

	if _, _, err := engine.Withdraw(ctx, "acc-a", dec("10"), ""); !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected frozen error, got %v", err)
	}
}

func TestAccrueInterest(t *testing.T) {
	now := testNow
	engine, store := newTestEngine(t, &now)
	ctx := context.Background()
	SeedAccount(store, savings("acc-a"), "120000")
	SeedAccount(store, savings("acc-tiny"), "0.10")
	SeedAccount(store, savings("acc-empty"), "0")
	SeedAccount(store, current("acc-c"), "90000")

	credits, err := engine.AccrueInterest(ctx)
	if err != nil {
		t.Fatalf("accrue interest: %v", err)
	}
	if len(credits) != 1 || credits[0].AccountID != "acc-a" || !credits[0].Amount.Equal(dec("400")) {
		t.Fatalf("unexpected credits %+v", credits)
	}

	acc, _ := store.Account(ctx, "acc-a")
	if !acc.Balance.Equal(dec("120400")) {
		t.Fatalf("expected balance 120400, got %s", acc.Balance)
	}
	if acc.LastInterestCredit == nil || !acc.LastInterestCredit.Equal(now) {
		t.Fatalf("expected last interest credit set, got %v", acc.LastInterestCredit)
	}

	txs, _ := store.Transactions(ctx, "acc-a", 0)
	if len(txs) != 1 || txs[0].Kind != KindInterest || txs[0].TargetAccountID != "acc-a" {
		t.Fatalf("unexpected interest records %+v", txs)
	}
	if txs[0].Description != "Monthly interest credit (4.0% p.a.)" {
		t.Fatalf("unexpected description %q", txs[0].Description)
	}

	tiny, _ := store.Account(ctx, "acc-tiny")
	if !tiny.Balance.Equal(dec("0.10")) {
		t.Fatalf("sub-minor interest must be skipped, got %s", tiny.Balance)
	}
}

func TestExternalTransfer_DebitsWithoutCredit(t *testing.T) {
	now := testNow
	engine, store := newTestEngine(t, &now)
	ctx := context.Background()
	SeedAccount(store, current("acc-a"), "10000")

	acc, rec, err := engine.ExternalTransfer(ctx, "acc-a", "99887766", dec("2500"), "")
	if err != nil {
		t.Fatalf("external transfer failed: %v", err)
	}
	if !acc.Balance.Equal(dec("7500")) {
		t.Fatalf("expected balance 7500, got %s", acc.Balance)
	}
	if ReferencePrefix(rec.Reference) != PrefixExternal || rec.Kind != KindWithdrawal || rec.TargetAccountID != "" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !acc.DailyTransferred.Equal(dec("2500")) {
		t.Fatalf("external transfer must count against the daily limit, got %s", acc.DailyTransferred)
	}
}

func TestUpdateLimitsAndFreeze(t *testing.T) {
	now := testNow
	engine, store := newTestEngine(t, &now)
	ctx := context.Background()
	SeedAccount(store, savings("acc-a"), "10000")

	daily := dec("2000")
	acc, err := engine.UpdateLimits(ctx, "acc-a", &daily, nil)
	if err != nil {
		t.Fatalf("update limits: %v", err)
	}
	if !acc.DailyLimit.Equal(daily) || !acc.MonthlyLimit.Equal(dec("1000000")) {
		t.Fatalf("unexpected limits %s / %s", acc.DailyLimit, acc.MonthlyLimit)
	}
	if _, _, err := engine.Withdraw(ctx, "acc-a", dec("2500"), ""); !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("expected new daily limit to apply, got %v", err)
	}

	if _, err := engine.SetFrozen(ctx, "acc-a", true); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if _, _, err := engine.Withdraw(ctx, "acc-a", dec("10"), ""); !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected frozen, got %v", err)
	}
	if _, err := engine.SetFrozen(ctx, "acc-a", false); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	if _, _, err := engine.Withdraw(ctx, "acc-a", dec("10"), ""); err != nil {
		t.Fatalf("withdraw after unfreeze: %v", err)
	}
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	now := testNow
	engine, store := newTestEngine(t, &now)
	ctx := context.Background()
	SeedAccount(store, current("acc-a"), "1000")

	const workers = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := engine.Withdraw(ctx, "acc-a", dec("100"), "")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("expected exactly 10 successful withdrawals, got %d", succeeded)
	}
	acc, _ := store.Account(ctx, "acc-a")
	if !acc.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", acc.Balance)
	}
}

func TestConcurrentCrossTransfersConserveMoney(t *testing.T) {
	now := testNow
	engine, store := newTestEngine(t, &now)
	ctx := context.Background()
	SeedAccount(store, current("acc-a"), "10000")
	SeedAccount(store, current("acc-b"), "10000")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := engine.Transfer(ctx, TransferInput{SourceAccountID: "acc-a", TargetAccountID: "acc-b", Amount: dec("10")}); err != nil {
				t.Errorf("a->b: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := engine.Transfer(ctx, TransferInput{SourceAccountID: "acc-b", TargetAccountID: "acc-a", Amount: dec("7")}); err != nil {
				t.Errorf("b->a: %v", err)
			}
		}()
	}
	wg.Wait()

	a, _ := store.Account(ctx, "acc-a")
	b, _ := store.Account(ctx, "acc-b")
	if !a.Balance.Add(b.Balance).Equal(dec("20000")) {
		t.Fatalf("money not conserved: %s + %s", a.Balance, b.Balance)
	}
	if !a.Balance.Equal(dec("9880")) {
		t.Fatalf("expected acc-a balance 9880, got %s", a.Balance)
	}

	refs := make(map[string]bool)
	for _, id := range []string{"acc-a", "acc-b"} {
		txs, _ := store.Transactions(ctx, id, 0)
		for _, tx := range txs {
			if tx.Kind != KindInternalTransfer {
				continue
			}
			refs[tx.Reference] = true
		}
	}
	if len(refs) != 80 {
		t.Fatalf("expected 80 unique references, got %d", len(refs))
	}
}

func TestMonthlyInterestRounding(t *testing.T) {
	cases := map[string]string{
		"120000": "400",
		"1000":   "3.33",
		"1001":   "3.34",
		"0.10":   "0",
	}
	for balance, want := range cases {
		got := MonthlyInterest(dec(balance), dec("0.04"))
		if !got.Equal(dec(want)) {
			t.Fatalf("balance %s: expected %s, got %s", balance, want, got)
		}
	}
}
