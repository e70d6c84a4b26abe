package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"

	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
)

// NewLimiter allows maxRequests per client IP in each window.
func NewLimiter(maxRequests, windowSecs int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        maxRequests,
		Expiration: time.Duration(windowSecs) * time.Second,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return apperror.NewTooManyRequests("too many requests, please try again later")
		},
	})
}
