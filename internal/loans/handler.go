package loans

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/apierr"
)

// Handler exposes loan endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a loan handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type applyRequest struct {
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	TenureMonths int             `json:"tenure_months"`
}

type loanResponse struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	TenureMonths int             `json:"tenure_months"`
	EMI          decimal.Decimal `json:"emi_amount"`
	Remaining    decimal.Decimal `json:"remaining_amount"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toLoanResponse(l Loan) loanResponse {
	return loanResponse{
		ID:           l.ID,
		Type:         string(l.Type),
		Amount:       l.Amount,
		InterestRate: l.InterestRate,
		TenureMonths: l.TenureMonths,
		EMI:          l.EMI,
		Remaining:    l.Remaining,
		Status:       l.Status,
		CreatedAt:    l.CreatedAt,
	}
}

// Apply submits a loan application for the caller.
func (h *Handler) Apply(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	loan, err := h.service.Apply(c.UserContext(), ApplyInput{UserID: uid, Type: req.Type, Amount: req.Amount, TenureMonths: req.TenureMonths})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"loan":    toLoanResponse(loan),
		"message": h.service.Message(loan),
	})
}

// List returns the caller's loans.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	loans, err := h.service.List(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	out := make([]loanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, toLoanResponse(l))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"loans": out})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrKYCRequired):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidType), errors.Is(err, ErrAmountRange), errors.Is(err, ErrInvalidTenure),
		errors.Is(err, ErrMissingUser):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return apierr.From(err)
	}
}
