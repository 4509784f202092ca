package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/payments"
)

// RegisterPaymentRoutes wires transfer endpoints behind the money-moving
// middlewares.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, mw ...fiber.Handler) {
	r.Post("/transfers", chain(mw, h.Transfer)...)
}
