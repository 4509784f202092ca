package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/accounts"
	"github.com/sanbank/core/internal/apierr"
)

// Handler exposes HTTP endpoints for deposits and withdrawals.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Deposit tops up the caller's primary account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Deposit(c.UserContext(), uid, req.Amount)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(h.toResponse(result))
}

// Withdraw debits the caller's primary account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Withdraw(c.UserContext(), uid, req.Amount, req.Description)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(h.toResponse(result))
}

func (h *Handler) toResponse(result Result) FundingResponse {
	return FundingResponse{
		Success:   true,
		Balance:   result.Account.Balance.StringFixed(2),
		Reference: result.Transaction.Reference,
		Message:   h.service.Message(result),
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrAmountOutOfRange):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, accounts.ErrNoAccount):
		return fiber.NewError(http.StatusNotFound, "no account found")
	default:
		return apierr.From(err)
	}
}
