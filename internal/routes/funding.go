package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/funding"
)

// RegisterFundingRoutes wires deposit and withdrawal endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler, mw ...fiber.Handler) {
	r.Post("/deposits", chain(mw, h.Deposit)...)
	r.Post("/withdrawals", chain(mw, h.Withdraw)...)
}

// chain appends handler to a copy of mw so callers can share one slice.
func chain(mw []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(mw)+1)
	out = append(out, mw...)
	return append(out, handler)
}
