package loans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/audit"
	"github.com/sanbank/core/internal/customer"
	"github.com/sanbank/core/internal/notification"
)

type kycStub map[string]bool

func (k kycStub) KYCVerified(_ context.Context, userID string) (bool, error) {
	verified, ok := k[userID]
	if !ok {
		return false, customer.ErrCustomerNotFound
	}
	return verified, nil
}

type captureRecorder struct {
	events []audit.Event
}

func (r *captureRecorder) Record(_ context.Context, e audit.Event) error {
	r.events = append(r.events, e)
	return nil
}

func newTestService(t *testing.T) (*Service, *captureRecorder, notification.Store) {
	t.Helper()
	recorder := &captureRecorder{}
	inbox := notification.NewMemoryStore()
	svc := NewService(NewMemoryRepository(), kycStub{"kyc": true, "fresh": false}, notification.NewStoreNotifier(inbox), recorder, "INR", nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return svc, recorder, inbox
}

func TestMonthlyInstalment(t *testing.T) {
	cases := []struct {
		principal, rate string
		months          int
		want            string
	}{
		{"100000", "12.5", 12, "8908"},
		{"2500000", "8.5", 120, "30996"},
		{"500000", "7.5", 60, "10019"},
		{"120000", "0", 12, "10000"},
	}
	for _, tc := range cases {
		got := MonthlyInstalment(decimal.RequireFromString(tc.principal), decimal.RequireFromString(tc.rate), tc.months)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("EMI(%s, %s%%, %d) = %s, want %s", tc.principal, tc.rate, tc.months, got, tc.want)
		}
	}
}

func TestApplyValidatesInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	cases := []struct {
		in   ApplyInput
		want error
	}{
		{ApplyInput{UserID: "kyc", Type: "YACHT", Amount: decimal.NewFromInt(50000), TenureMonths: 12}, ErrInvalidType},
		{ApplyInput{UserID: "kyc", Type: "CAR", Amount: decimal.NewFromInt(9999), TenureMonths: 12}, ErrAmountRange},
		{ApplyInput{UserID: "kyc", Type: "CAR", Amount: decimal.NewFromInt(10_000_001), TenureMonths: 12}, ErrAmountRange},
		{ApplyInput{UserID: "kyc", Type: "CAR", Amount: decimal.NewFromInt(50000), TenureMonths: 18}, ErrInvalidTenure},
		{ApplyInput{UserID: "fresh", Type: "CAR", Amount: decimal.NewFromInt(50000), TenureMonths: 12}, ErrKYCRequired},
		{ApplyInput{UserID: "stranger", Type: "CAR", Amount: decimal.NewFromInt(50000), TenureMonths: 12}, ErrKYCRequired},
		{ApplyInput{Type: "CAR", Amount: decimal.NewFromInt(50000), TenureMonths: 12}, ErrMissingUser},
	}
	for _, tc := range cases {
		if _, err := svc.Apply(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("apply %+v: expected %v, got %v", tc.in, tc.want, err)
		}
	}
}

func TestApplyStoresPendingLoan(t *testing.T) {
	svc, recorder, inbox := newTestService(t)
	ctx := context.Background()

	loan, err := svc.Apply(ctx, ApplyInput{UserID: "kyc", Type: "personal", Amount: decimal.NewFromInt(100000), TenureMonths: 12})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if loan.Type != TypePersonal || loan.Status != StatusPending {
		t.Fatalf("unexpected loan %+v", loan)
	}
	if !loan.InterestRate.Equal(decimal.RequireFromString("12.5")) || !loan.EMI.Equal(decimal.NewFromInt(8908)) {
		t.Fatalf("unexpected pricing rate=%s emi=%s", loan.InterestRate, loan.EMI)
	}
	if !loan.Remaining.Equal(loan.Amount) {
		t.Fatalf("expected remaining to equal principal, got %s", loan.Remaining)
	}

	if len(recorder.events) != 1 || recorder.events[0].Action != audit.ActionLoanApplied || recorder.events[0].Amount != "100000.00" {
		t.Fatalf("unexpected audit trail %+v", recorder.events)
	}
	msgs, err := inbox.ListByUser(ctx, "kyc", 10)
	if err != nil || len(msgs) != 1 || msgs[0].Kind != notification.KindLoanApplied {
		t.Fatalf("expected loan notification, got %+v (%v)", msgs, err)
	}
	if want := "Loan application for ₹100,000.00 submitted successfully! EMI: ₹8,908.00/month"; svc.Message(loan) != want {
		t.Fatalf("expected %q, got %q", want, svc.Message(loan))
	}

	svc.now = func() time.Time { return time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC) }
	second, err := svc.Apply(ctx, ApplyInput{UserID: "kyc", Type: "CAR", Amount: decimal.NewFromInt(50000), TenureMonths: 24})
	if err != nil {
		t.Fatalf("apply second: %v", err)
	}
	list, err := svc.List(ctx, "kyc")
	if err != nil || len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v (%v)", list, err)
	}
}
