package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

const InternalSecretHeader = "X-Internal-Secret"

// InternalSecret guards admin routes. An empty secret closes them entirely.
func InternalSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		given := c.Get(InternalSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    fiber.StatusUnauthorized,
				"message": "unauthorized",
			})
		}
		return c.Next()
	}
}
