package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
	"github.com/chuanghiduoc/progress-mailer/pkg/metrics"
)

// Metrics records request counts and latency labelled by route pattern, so
// /students/1 and /students/2 share a series.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		path := c.Route().Path
		if path == "" || (path == "/" && c.Path() != "/") {
			path = "unmatched"
		}
		status := c.Response().StatusCode()
		if err != nil {
			// The error handler has not run yet; use the status it will send.
			status = apperror.StatusOf(err)
		}

		metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())

		return err
	}
}
