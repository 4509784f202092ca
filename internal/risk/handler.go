package risk

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes fraud log endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a fraud log handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type fraudLogResponse struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	RiskScore     int       `json:"risk_score"`
	Reason        string    `json:"reason"`
	IsFlagged     bool      `json:"is_flagged"`
	CreatedAt     time.Time `json:"created_at"`
}

// List returns the caller's fraud log.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	entries, err := h.service.FraudLogs(c.UserContext(), uid, c.QueryInt("limit", 50))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not load fraud logs")
	}
	out := make([]fraudLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, fraudLogResponse{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			RiskScore:     e.RiskScore,
			Reason:        e.Reason,
			IsFlagged:     e.IsFlagged,
			CreatedAt:     e.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"fraud_logs": out})
}
