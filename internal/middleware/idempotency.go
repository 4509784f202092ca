package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "sanbank:idem:v1:"
	maxIdempotencyKeyLen = 128
	redisOpTimeout       = 2 * time.Second
)

// replayHeaders are the response headers worth giving back on a replay.
var replayHeaders = []string{fiber.HeaderContentType, fiber.HeaderLocation}

// fingerprintSpace namespaces request body fingerprints.
var fingerprintSpace = uuid.MustParse("7f8f4d2e-3b1c-4c55-9a61-0c2b7f1d9e10")

// replay is what gets stored once a money-moving request finished.
type replay struct {
	Fingerprint string            `json:"fingerprint"`
	Status      int               `json:"status"`
	Body        []byte            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
}

type idempotencyStore struct {
	cache *redis.Client
	ttl   time.Duration
}

func (s idempotencyStore) load(key string) (replay, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	raw, err := s.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return replay{}, false, nil
	}
	if err != nil {
		return replay{}, false, err
	}
	var r replay
	if err := json.Unmarshal(raw, &r); err != nil {
		return replay{}, false, err
	}
	return r, true, nil
}

// reserve claims key for the in-flight request. It reports false when
// another request holds or already finished it.
func (s idempotencyStore) reserve(key, fingerprint string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	marker, _ := json.Marshal(replay{Fingerprint: fingerprint})
	return s.cache.SetNX(ctx, key, marker, s.ttl).Result()
}

func (s idempotencyStore) save(key string, r replay) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.cache.Set(ctx, key, payload, s.ttl).Err()
}

func (s idempotencyStore) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	s.cache.Del(ctx, key)
}

// Idempotency makes deposits, withdrawals and transfers safe to retry. The
// first response for a caller, path and Idempotency-Key is kept in Redis and
// replayed for repeats. Reusing a key with a different body is rejected.
// Server errors and 409 "account busy" answers are not kept, so the client
// can retry them under the same key. A nil cache disables the middleware.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	store := idempotencyStore{cache: cache, ttl: ttl}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		uid, _ := c.Locals(userIDLocal).(string)
		cacheKey := idempotencyPrefix + uid + ":" + c.Path() + ":" + key
		fingerprint := uuid.NewSHA1(fingerprintSpace, c.Body()).String()
		log := logger.With(slog.String("idempotency_key", key), slog.String("user_id", uid))

		prev, found, err := store.load(cacheKey)
		if err != nil {
			log.Error("idempotency lookup failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
		}
		if found {
			return answerRepeat(c, prev, fingerprint)
		}

		claimed, err := store.reserve(cacheKey, fingerprint)
		if err != nil {
			log.Error("idempotency reservation failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
		}
		if !claimed {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			store.release(cacheKey)
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError || status == fiber.StatusConflict {
			store.release(cacheKey)
			return nil
		}

		done := replay{
			Fingerprint: fingerprint,
			Status:      status,
			Body:        append([]byte(nil), c.Response().Body()...),
			Headers:     map[string]string{},
		}
		for _, h := range replayHeaders {
			if v := c.GetRespHeader(h); v != "" {
				done.Headers[h] = v
			}
		}
		if err := store.save(cacheKey, done); err != nil {
			// The money already moved; keep the answer and let the reservation expire.
			log.Error("failed to persist idempotent response", slog.Any("error", err))
		}
		return nil
	}
}

func answerRepeat(c *fiber.Ctx, prev replay, fingerprint string) error {
	if prev.Fingerprint != fingerprint {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Idempotency-Key reused with a different request")
	}
	if prev.Status == 0 {
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}
	for h, v := range prev.Headers {
		c.Set(h, v)
	}
	c.Set("Idempotent-Replayed", "true")
	return c.Status(prev.Status).Send(prev.Body)
}
