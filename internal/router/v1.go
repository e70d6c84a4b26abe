package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/chuanghiduoc/progress-mailer/internal/middleware"
)

func RegisterV1Routes(v1 fiber.Router, deps Deps) {
	cfg := deps.Config

	// Rate limiters (tiered). Anything that sends mail is strict.
	rl := cfg.RateLimit
	strictLimiter := middleware.NewLimiter(rl.StrictMax, rl.StrictWindow)
	normalLimiter := middleware.NewLimiter(rl.NormalMax, rl.NormalWindow)
	relaxedLimiter := middleware.NewLimiter(rl.RelaxedMax, rl.RelaxedWindow)

	// Student records
	students := v1.Group("/students")
	students.Get("/", relaxedLimiter, deps.StudentHandler.List)
	students.Get("/stats", relaxedLimiter, deps.StudentHandler.Stats)
	students.Get("/:id", relaxedLimiter, deps.StudentHandler.GetByID)
	students.Post("/", normalLimiter, deps.StudentHandler.Create)
	students.Put("/:id", normalLimiter, deps.StudentHandler.Update)
	students.Delete("/:id", normalLimiter, deps.StudentHandler.Delete)

	// Email dispatch
	mail := v1.Group("/email")
	mail.Post("/send", normalLimiter, deps.MailHandler.Send)
	mail.Post("/send-bulk", strictLimiter, deps.MailHandler.SendBulk)
	mail.Post("/test", strictLimiter, deps.MailHandler.SendTest)
	mail.Post("/preview", relaxedLimiter, deps.MailHandler.Preview)

	// Background runs
	mail.Post("/runs", strictLimiter, deps.MailHandler.StartRun)
	mail.Get("/runs/:id", relaxedLimiter, deps.MailHandler.GetRun)
	mail.Post("/runs/:id/cancel", normalLimiter, deps.MailHandler.CancelRun)
}
