package customer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sanbank/core/internal/accounts"
	"github.com/sanbank/core/internal/audit"
	"github.com/sanbank/core/internal/ledger"
	"github.com/sanbank/core/internal/notification"
)

type captureRecorder struct {
	events []audit.Event
}

func (r *captureRecorder) Record(_ context.Context, e audit.Event) error {
	r.events = append(r.events, e)
	return nil
}

func newTestService(t *testing.T) (*Service, notification.Store, *captureRecorder) {
	t.Helper()
	engine := ledger.NewEngine(ledger.NewMemoryStore(time.Second))
	inbox := notification.NewMemoryStore()
	notifier := notification.NewStoreNotifier(inbox)
	recorder := &captureRecorder{}
	opener := accounts.NewService(engine, notifier, recorder, nil)
	return NewService(NewMemoryRepository(), opener, notifier, recorder, nil), inbox, recorder
}

func TestRegisterOpensAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	c, acc, err := svc.Register(ctx, RegisterInput{UserID: "u1", Email: " Asha@Example.com ", Name: "Asha"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if c.Email != "asha@example.com" {
		t.Fatalf("expected normalised email, got %q", c.Email)
	}
	if acc.Kind != ledger.AccountKindSavings || acc.UserID != "u1" {
		t.Fatalf("expected savings account for u1, got %+v", acc)
	}

	_, current, err := svc.Register(ctx, RegisterInput{UserID: "u2", Email: "ravi@example.com", AccountKind: "current"})
	if err != nil {
		t.Fatalf("register current: %v", err)
	}
	if current.Kind != ledger.AccountKindCurrent {
		t.Fatalf("expected current account, got %s", current.Kind)
	}

	if _, _, err := svc.Register(ctx, RegisterInput{UserID: "u3", Email: "asha@example.com"}); !errors.Is(err, ErrCustomerExists) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if _, _, err := svc.Register(ctx, RegisterInput{UserID: "u4", Email: "not-an-email"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email, got %v", err)
	}
}

func TestPINLifecycle(t *testing.T) {
	svc, inbox, recorder := newTestService(t)
	ctx := context.Background()
	if _, _, err := svc.Register(ctx, RegisterInput{UserID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if has, _, _ := svc.VerifyPIN(ctx, "u1", "1234"); has {
		t.Fatalf("expected no PIN yet")
	}
	if err := svc.SetPIN(ctx, "u1", "12a4", ""); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected invalid PIN, got %v", err)
	}
	if err := svc.SetPIN(ctx, "u1", "1234", ""); err != nil {
		t.Fatalf("set PIN: %v", err)
	}

	has, valid, err := svc.VerifyPIN(ctx, "u1", "1234")
	if err != nil || !has || !valid {
		t.Fatalf("expected valid PIN, got has=%v valid=%v err=%v", has, valid, err)
	}
	if _, valid, _ := svc.VerifyPIN(ctx, "u1", "9999"); valid {
		t.Fatalf("wrong PIN must not verify")
	}

	if err := svc.SetPIN(ctx, "u1", "5678", "0000"); !errors.Is(err, ErrPINMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := svc.SetPIN(ctx, "u1", "5678", "1234"); err != nil {
		t.Fatalf("change PIN: %v", err)
	}
	if _, valid, _ := svc.VerifyPIN(ctx, "u1", "5678"); !valid {
		t.Fatalf("expected new PIN to verify")
	}

	msgs, _ := inbox.ListByUser(ctx, "u1", 10)
	pinMsgs := 0
	for _, m := range msgs {
		if m.Kind == notification.KindPINUpdated {
			pinMsgs++
		}
	}
	if pinMsgs != 2 {
		t.Fatalf("expected 2 PIN notifications, got %d", pinMsgs)
	}
	pinEvents := 0
	for _, e := range recorder.events {
		if e.Action == audit.ActionPINChanged {
			pinEvents++
		}
	}
	if pinEvents != 2 {
		t.Fatalf("expected 2 PIN audit events, got %d", pinEvents)
	}
}

func TestVerifyKYC(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, _, err := svc.Register(ctx, RegisterInput{UserID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []struct {
		name string
		docs KYCDocuments
		want error
	}{
		{"missing", KYCDocuments{Aadhaar: "123412341234"}, ErrKYCIncomplete},
		{"short aadhaar", KYCDocuments{Aadhaar: "1234", PAN: "ABCDE1234F", DateOfBirth: "1990-01-01", Address: "Pune"}, ErrInvalidAadhaar},
		{"bad pan", KYCDocuments{Aadhaar: "1234 1234 1234", PAN: "ABC1234", DateOfBirth: "1990-01-01", Address: "Pune"}, ErrInvalidPAN},
	}
	for _, tc := range cases {
		if err := svc.VerifyKYC(ctx, "u1", tc.docs); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	ok, _ := svc.KYCVerified(ctx, "u1")
	if ok {
		t.Fatalf("expected unverified customer")
	}
	err := svc.VerifyKYC(ctx, "u1", KYCDocuments{Aadhaar: "1234 1234 1234", PAN: "abcde1234f", DateOfBirth: "1990-01-01", Address: "Pune"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok, _ := svc.KYCVerified(ctx, "u1"); !ok {
		t.Fatalf("expected verified customer")
	}
}

type flakyOpener struct {
	*accounts.Service
	failures int
}

func (f *flakyOpener) Open(ctx context.Context, userID string, kind ledger.AccountKind) (ledger.Account, error) {
	if f.failures > 0 {
		f.failures--
		return ledger.Account{}, ledger.ErrStorageUnavailable
	}
	return f.Service.Open(ctx, userID, kind)
}

func TestRegisterResumesAfterAccountOpenFailure(t *testing.T) {
	engine := ledger.NewEngine(ledger.NewMemoryStore(time.Second))
	opener := &flakyOpener{Service: accounts.NewService(engine, nil, nil, nil), failures: 1}
	svc := NewService(NewMemoryRepository(), opener, nil, nil, nil)
	ctx := context.Background()

	in := RegisterInput{UserID: "u1", Email: "meera@example.com", Name: "Meera"}
	if _, _, err := svc.Register(ctx, in); !errors.Is(err, ledger.ErrStorageUnavailable) {
		t.Fatalf("expected storage failure, got %v", err)
	}

	c, acc, err := svc.Register(ctx, in)
	if err != nil {
		t.Fatalf("retry register: %v", err)
	}
	if c.ID != "u1" || acc.UserID != "u1" {
		t.Fatalf("unexpected customer %+v account %+v", c, acc)
	}

	if _, _, err := svc.Register(ctx, in); !errors.Is(err, ErrCustomerExists) {
		t.Fatalf("expected exists once the account is open, got %v", err)
	}
	if _, _, err := svc.Register(ctx, RegisterInput{UserID: "u1", Email: "other@example.com"}); !errors.Is(err, ErrCustomerExists) {
		t.Fatalf("expected exists for a different email, got %v", err)
	}
	list, err := engine.Store().AccountsByUser(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected exactly one account, got %d (%v)", len(list), err)
	}
}
