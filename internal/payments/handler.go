package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/sanbank/core/internal/accounts"
	"github.com/sanbank/core/internal/apierr"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	TargetAccountNumber string          `json:"target_account_number"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description"`
	PIN                 string          `json:"pin"`
}

// Transfer moves money from the caller's primary account.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		UserID:              uid,
		TargetAccountNumber: req.TargetAccountNumber,
		Amount:              req.Amount,
		Description:         req.Description,
		PIN:                 req.PIN,
	})
	if err != nil {
		var flagged *FlaggedError
		switch {
		case errors.As(err, &flagged):
			return c.Status(http.StatusForbidden).JSON(fiber.Map{
				"error":      "Transaction flagged as suspicious. Please contact security.",
				"risk_score": flagged.Assessment.Score,
			})
		case errors.Is(err, ErrMissingTarget):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrPINRequired), errors.Is(err, ErrInvalidPIN):
			return fiber.NewError(http.StatusForbidden, err.Error())
		case errors.Is(err, accounts.ErrNoAccount):
			return fiber.NewError(http.StatusNotFound, "no source account found")
		default:
			return apierr.From(err)
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":        "Transfer successful",
		"transaction_id": res.Transaction.ID,
		"reference":      res.Transaction.Reference,
		"external":       res.External,
		"risk_score":     res.Assessment.Score,
	})
}
