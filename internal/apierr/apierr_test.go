package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/ledger"
)

func status(t *testing.T, err error) int {
	t.Helper()
	var apiErr *Error
	var fe *fiber.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Status
	case errors.As(err, &fe):
		return fe.Code
	}
	t.Fatalf("unexpected error type %T", err)
	return 0
}

func TestFromStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ledger.ErrAccountNotFound, http.StatusNotFound},
		{ledger.ErrTargetAccountNotFound, http.StatusNotFound},
		{&ledger.RuleError{Err: ledger.ErrInsufficientFunds, Detail: "insufficient funds: ₹10.00 short"}, http.StatusUnprocessableEntity},
		{ledger.ErrAccountFrozen, http.StatusUnprocessableEntity},
		{ledger.ErrInvalidAmount, http.StatusBadRequest},
		{ledger.ErrLockTimeout, http.StatusConflict},
		{fmt.Errorf("%w: dial tcp", ledger.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := status(t, From(tc.err)); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestFromKeepsRuleMessageAndHidesInternal(t *testing.T) {
	rule := &ledger.RuleError{Err: ledger.ErrMinimumBalance, Detail: "savings account must maintain a minimum balance of ₹1,000.00"}
	var fe *fiber.Error
	if !errors.As(From(rule), &fe) || fe.Message != rule.Detail {
		t.Fatalf("expected rule detail to be kept")
	}

	var apiErr *Error
	if !errors.As(From(errors.New("pq: secret table")), &apiErr) || apiErr.Message != "internal server error" {
		t.Fatalf("expected generic message for internal errors")
	}
	if !errors.As(From(ledger.ErrConcurrencyConflict), &apiErr) || !apiErr.Retryable {
		t.Fatalf("expected concurrency conflict to be retryable")
	}
}
