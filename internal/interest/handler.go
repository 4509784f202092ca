package interest

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/apierr"
)

// Handler exposes the admin trigger for the interest job.
type Handler struct {
	job *Job
}

// NewHandler constructs an interest handler.
func NewHandler(job *Job) *Handler {
	return &Handler{job: job}
}

type creditResponse struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
}

// Credit runs the interest job synchronously.
func (h *Handler) Credit(c *fiber.Ctx) error {
	credits, err := h.job.Run(c.UserContext())
	if err != nil {
		return apierr.From(err)
	}
	details := make([]creditResponse, 0, len(credits))
	for _, credit := range credits {
		details = append(details, creditResponse{AccountID: credit.AccountID, Amount: credit.Amount.StringFixed(2)})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": fmt.Sprintf("Interest credited successfully to %d accounts.", len(credits)),
		"details": details,
	})
}
