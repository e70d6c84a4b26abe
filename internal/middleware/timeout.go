package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// Timeout bounds the request context. A non-positive duration disables it.
func Timeout(duration time.Duration) fiber.Handler {
	return func(c fiber.Ctx) error {
		if duration <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.Context(), duration)
		defer cancel()

		c.SetContext(ctx)
		return c.Next()
	}
}
