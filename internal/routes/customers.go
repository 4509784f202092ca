package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/customer"
)

// RegisterCustomerRoutes wires onboarding, KYC and PIN endpoints.
func RegisterCustomerRoutes(r fiber.Router, h *customer.Handler) {
	r.Post("/customers/register", h.Register)
	r.Post("/kyc", h.KYC)
	r.Get("/pin", h.PINStatus)
	r.Post("/pin", h.SetPIN)
	r.Put("/pin", h.VerifyPIN)
}
