package middleware

import (
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimiter limits requests per client IP. Paths listed in exempt skip it;
// gateway callbacks arrive from a few shared IPs and carry their own auth.
func RateLimiter(max int, expiration time.Duration, exempt ...string) fiber.Handler {
	if max == 0 {
		max = 50
	}
	if expiration == 0 {
		expiration = 1 * time.Minute
	}
	return limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return slices.Contains(exempt, c.Path())
		},
		Max:               max,
		Expiration:        expiration,
		LimitReached:      limitReached,
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}

// UserRateLimiter limits messages per bot user rather than per client IP.
// Routes using it must carry a :userID parameter.
func UserRateLimiter(max int, expiration time.Duration) fiber.Handler {
	if max == 0 {
		max = 10
	}
	if expiration == 0 {
		expiration = 1 * time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "user:" + c.Params("userID")
		},
		LimitReached:      limitReached,
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}

func limitReached(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"code":    fiber.StatusTooManyRequests,
		"message": "Too many requests, slow down",
	})
}
