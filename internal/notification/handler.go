package notification

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the notification inbox.
type Handler struct {
	store Store
}

// NewHandler constructs a notification handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type messageResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns the caller's 30 newest notifications and the unread count.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	messages, err := h.store.ListByUser(c.UserContext(), uid, 30)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not load notifications")
	}
	unread := 0
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		if !m.Read {
			unread++
		}
		out = append(out, messageResponse{ID: m.ID, Title: m.Title, Message: m.Body, Type: m.Type, Link: m.Link, Read: m.Read, CreatedAt: m.CreatedAt})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"notifications": out, "unread_count": unread})
}

type markRequest struct {
	ID      string `json:"id"`
	MarkAll bool   `json:"mark_all"`
}

// MarkRead marks one notification, or all of them, as read.
func (h *Handler) MarkRead(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req markRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var err error
	switch {
	case req.MarkAll:
		err = h.store.MarkAllRead(c.UserContext(), uid)
	case req.ID != "":
		err = h.store.MarkRead(c.UserContext(), uid, req.ID)
	default:
		return fiber.NewError(http.StatusBadRequest, "provide id or mark_all")
	}
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not update notifications")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}
