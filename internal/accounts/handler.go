package accounts

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/apierr"
)

// Handler exposes account endpoints for the authenticated user.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type limitsRequest struct {
	DailyLimit   *decimal.Decimal `json:"daily_limit"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit"`
}

// Me returns the caller's primary account.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	account, err := h.service.Primary(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toAccountResponse(account))
}

// Transactions returns the newest transactions of the caller's account.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	account, txs, err := h.service.History(c.UserContext(), uid, limit)
	if err != nil {
		return mapError(err)
	}
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, ToTransactionResponse(tx))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"account_id": account.ID, "transactions": out})
}

// UpdateLimits changes the caller's daily and monthly limits.
func (h *Handler) UpdateLimits(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req limitsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := h.service.UpdateLimits(c.UserContext(), uid, LimitsInput{Daily: req.DailyLimit, Monthly: req.MonthlyLimit})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account": toAccountResponse(account),
		"message": "Card limits updated successfully!",
	})
}

// ToggleFreeze freezes or unfreezes the caller's account.
func (h *Handler) ToggleFreeze(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	account, err := h.service.ToggleFreeze(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	message := "Account unfrozen"
	if account.Frozen {
		message = "Account frozen"
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"is_frozen": account.Frozen, "message": message})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNoAccount):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoLimits), errors.Is(err, ErrDailyLimitRange), errors.Is(err, ErrMonthlyLimitRange), errors.Is(err, ErrUnknownKind):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return apierr.From(err)
	}
}
