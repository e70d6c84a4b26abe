package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v3"

	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
)

func Recovery(env string) fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic recovered",
					slog.Any("error", r),
					slog.String("path", c.Path()),
					slog.String("request_id", RequestIDFromContext(c.Context())),
					slog.String("stack", string(debug.Stack())),
				)

				msg := "internal server error"
				if env == "local" || env == "test" {
					msg = "internal server error (check server logs for details)"
				}
				err = apperror.NewInternal(msg)
			}
		}()

		return c.Next()
	}
}
