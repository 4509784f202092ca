package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/apierr"
	"github.com/sanbank/core/internal/config"
	"github.com/sanbank/core/internal/logging"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := logging.Discard()
	app := fiber.New(fiber.Config{ErrorHandler: apierr.Handler(logger)})
	closer, err := Setup(app, Deps{
		Cfg: config.Config{
			AppEnv:      "development",
			Location:    time.UTC,
			Currency:    "INR",
			LockTimeout: time.Second,
			AdminToken:  "admin-secret",
		},
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { _ = closer(context.Background()) })
	return app
}

func call(t *testing.T, app *fiber.App, method, path, user, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestBankingFlow(t *testing.T) {
	app := setupTestApp(t)

	status, body := call(t, app, http.MethodPost, "/api/v1/customers/register", "u1", `{"email":"asha@example.com","name":"Asha"}`)
	if status != http.StatusCreated {
		t.Fatalf("register u1: %d %v", status, body)
	}
	status, body = call(t, app, http.MethodPost, "/api/v1/customers/register", "u2", `{"email":"ravi@example.com","account_type":"CURRENT"}`)
	if status != http.StatusCreated {
		t.Fatalf("register u2: %d %v", status, body)
	}
	target, _ := body["account_number"].(string)

	if status, body = call(t, app, http.MethodPost, "/api/v1/deposits", "u1", `{"amount":20000}`); status != http.StatusCreated {
		t.Fatalf("deposit: %d %v", status, body)
	}

	status, body = call(t, app, http.MethodPost, "/api/v1/transfers", "u1", `{"target_account_number":"`+target+`","amount":"4500.50"}`)
	if status != http.StatusCreated {
		t.Fatalf("transfer: %d %v", status, body)
	}
	if ref, _ := body["reference"].(string); !strings.HasPrefix(ref, "TRX-") {
		t.Fatalf("unexpected reference %v", body["reference"])
	}

	status, body = call(t, app, http.MethodGet, "/api/v1/accounts/me", "u2", "")
	if status != http.StatusOK || body["balance"] != "4500.5" {
		t.Fatalf("expected u2 balance 4500.5, got %d %v", status, body)
	}

	// a savings account must keep its minimum balance
	status, body = call(t, app, http.MethodPost, "/api/v1/withdrawals", "u1", `{"amount":15000}`)
	if status != http.StatusUnprocessableEntity || !strings.Contains(body["error"].(string), "minimum balance") {
		t.Fatalf("expected 422 minimum balance, got %d %v", status, body)
	}

	status, body = call(t, app, http.MethodGet, "/api/v1/accounts/me/transactions", "u1", "")
	if status != http.StatusOK {
		t.Fatalf("history: %d %v", status, body)
	}
	if txs, _ := body["transactions"].([]any); len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %v", body["transactions"])
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, body = call(t, app, http.MethodGet, "/api/v1/notifications", "u1", "")
		if n, _ := body["unread_count"].(float64); n >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("transfer notification never arrived: %v", body)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRequestsWithoutIdentityAreRejected(t *testing.T) {
	app := setupTestApp(t)
	if status, _ := call(t, app, http.MethodGet, "/api/v1/accounts/me", "", ""); status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if status, _ := call(t, app, http.MethodGet, "/api/v1/accounts/me", "ghost", ""); status != http.StatusNotFound {
		t.Fatalf("expected 404 for a user without account, got %d", status)
	}
}

func TestAdminCreditInterest(t *testing.T) {
	app := setupTestApp(t)
	if status, _ := call(t, app, http.MethodPost, "/api/v1/admin/credit-interest", "", ""); status != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", status)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/credit-interest", nil)
	req.Header.Set("X-Admin-Token", "admin-secret")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	app := setupTestApp(t)
	status, body := call(t, app, http.MethodGet, "/healthz", "", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
}

func TestLoanApplicationRequiresKYC(t *testing.T) {
	app := setupTestApp(t)

	if status, body := call(t, app, http.MethodPost, "/api/v1/customers/register", "u1", `{"email":"asha@example.com"}`); status != http.StatusCreated {
		t.Fatalf("register: %d %v", status, body)
	}
	apply := `{"type":"HOME","amount":"2500000","tenure_months":120}`
	if status, body := call(t, app, http.MethodPost, "/api/v1/loans", "u1", apply); status != http.StatusForbidden {
		t.Fatalf("expected 403 before KYC, got %d %v", status, body)
	}

	kyc := `{"aadhaar":"1234 5678 9012","pan":"abcde1234f","dob":"1990-01-01","address":"Pune"}`
	if status, body := call(t, app, http.MethodPost, "/api/v1/kyc", "u1", kyc); status != http.StatusOK {
		t.Fatalf("kyc: %d %v", status, body)
	}
	status, body := call(t, app, http.MethodPost, "/api/v1/loans", "u1", apply)
	if status != http.StatusCreated {
		t.Fatalf("apply: %d %v", status, body)
	}
	loan, _ := body["loan"].(map[string]any)
	if loan["emi_amount"] != "30996" || loan["status"] != "PENDING" {
		t.Fatalf("unexpected loan %v", loan)
	}

	status, body = call(t, app, http.MethodGet, "/api/v1/loans", "u1", "")
	if status != http.StatusOK {
		t.Fatalf("list: %d %v", status, body)
	}
	if list, _ := body["loans"].([]any); len(list) != 1 {
		t.Fatalf("expected one loan, got %v", body["loans"])
	}
}
