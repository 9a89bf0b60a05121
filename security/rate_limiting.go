package security

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// WebhookRateLimit limits webhook deliveries per provider per source IP.
// Providers retry aggressively after an outage; the limit sheds the burst
// while dedup makes the dropped deliveries safe to lose.
func (r *RateLimiter) WebhookRateLimit(perMinute int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: &redisStore{redis: r.redis, limit: perMinute, window: time.Minute},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return fmt.Sprintf("%s:%s", c.PathParam("provider"), c.RealIP()), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(429, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// redisStore is a fixed-window counter per identifier.
type redisStore struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func (s *redisStore) Allow(identifier string) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s", identifier)
	ctx := context.Background()

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		// Redis down must not block webhook ingestion.
		return true, nil
	}
	if count == 1 {
		s.redis.Expire(ctx, key, s.window)
	}

	return count <= int64(s.limit), nil
}
