package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/accounts"
)

// RegisterAccountRoutes wires the caller's account endpoints.
func RegisterAccountRoutes(r fiber.Router, h *accounts.Handler) {
	r.Get("/accounts/me", h.Me)
	r.Get("/accounts/me/transactions", h.Transactions)
	r.Patch("/accounts/me/limits", h.UpdateLimits)
	r.Patch("/accounts/me/freeze", h.ToggleFreeze)
}
