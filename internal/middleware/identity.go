package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	userIDHeader     = "X-User-ID"
	adminTokenHeader = "X-Admin-Token"
	userIDLocal      = "user_id"
	maxUserIDLength  = 128
)

// Identity resolves the caller and stores it under the "user_id" local. With
// a secret it requires a bearer token signed by the identity gateway;
// without one it trusts the X-User-ID header the gateway sets.
func Identity(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var uid string
		if len(secret) > 0 {
			authz := c.Get(fiber.HeaderAuthorization)
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
			}
			sub, err := verifyGatewayToken(strings.TrimSpace(authz[len("Bearer "):]), secret, time.Now())
			if err != nil {
				return fiber.NewError(http.StatusUnauthorized, "invalid token")
			}
			uid = sub
		} else {
			uid = strings.TrimSpace(c.Get(userIDHeader))
		}
		if uid == "" || len(uid) > maxUserIDLength {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		c.Locals(userIDLocal, uid)
		return c.Next()
	}
}

// AdminOnly guards operator endpoints with a shared token. An empty token
// disables them.
func AdminOnly(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return fiber.NewError(http.StatusForbidden, "admin endpoints are disabled")
		}
		got := c.Get(adminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return fiber.NewError(http.StatusForbidden, "forbidden")
		}
		return c.Next()
	}
}
