package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "sanbank:rl:"

// RateLimit allows maxPerMin requests per caller per minute for the named
// bucket, keyed by user id or, before authentication, by IP. It fails open on
// cache errors and is a no-op without Redis or with a non-positive limit.
func RateLimit(cache *redis.Client, bucket string, maxPerMin int, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || maxPerMin <= 0 {
			return c.Next()
		}
		subject, _ := c.Locals(userIDLocal).(string)
		if subject == "" {
			subject = c.IP()
		}
		window := time.Now().UTC().Format("200601021504")
		key := rateLimitPrefix + bucket + ":" + subject + ":" + window

		ctx := c.UserContext()
		pipe := cache.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, time.Minute)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warn("rate limit check failed", slog.String("bucket", bucket), slog.Any("error", err))
			return c.Next()
		}
		if incr.Val() > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
