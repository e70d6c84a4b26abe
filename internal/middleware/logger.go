package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
)

// Logger writes one access log line per request. Paths in skip (probes and
// the metrics scrape) are only logged when they fail.
func Logger(skip ...string) fiber.Handler {
	quiet := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		quiet[p] = struct{}{}
	}

	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = apperror.StatusOf(err)
		}
		if _, ok := quiet[c.Path()]; ok && status < 400 {
			return err
		}

		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
			slog.String("request_id", fiber.Locals[string](c, "request_id")),
			slog.Int("content_length", c.Request().Header.ContentLength()),
			slog.String("user_agent", c.Get("User-Agent")),
		}
		if q := c.Request().URI().QueryString(); len(q) > 0 {
			attrs = append(attrs, slog.String("query", string(q)))
		}

		switch {
		case status >= 500:
			slog.LogAttrs(c.Context(), slog.LevelError, "request", attrs...)
		case status >= 400:
			slog.LogAttrs(c.Context(), slog.LevelWarn, "request", attrs...)
		default:
			slog.LogAttrs(c.Context(), slog.LevelInfo, "request", attrs...)
		}

		return err
	}
}
