package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/interest"
	"github.com/sanbank/core/internal/middleware"
	"github.com/sanbank/core/internal/notification"
	"github.com/sanbank/core/internal/risk"
)

// RegisterRiskRoutes exposes the caller's fraud log.
func RegisterRiskRoutes(r fiber.Router, h *risk.Handler) {
	r.Get("/fraud-logs", h.List)
}

// RegisterNotificationRoutes wires the in-app inbox.
func RegisterNotificationRoutes(r fiber.Router, h *notification.Handler) {
	r.Get("/notifications", h.List)
	r.Patch("/notifications", h.MarkRead)
}

// RegisterAdminRoutes wires operator endpoints.
func RegisterAdminRoutes(r fiber.Router, h *interest.Handler, token string) {
	r.Post("/admin/credit-interest", middleware.AdminOnly(token), h.Credit)
}
