package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/loans"
)

// RegisterLoanRoutes wires loan applications.
func RegisterLoanRoutes(r fiber.Router, h *loans.Handler) {
	r.Get("/loans", h.List)
	r.Post("/loans", h.Apply)
}
