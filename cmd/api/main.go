// @title Progress Mailer API
// @version 1.0
// @description Bulk dispatch of academic progress emails to student guardians.
// @basePath /api/v1
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gofiber/fiber/v3"

	"github.com/chuanghiduoc/progress-mailer/config"
	"github.com/chuanghiduoc/progress-mailer/internal/handler"
	"github.com/chuanghiduoc/progress-mailer/internal/mailmerge"
	"github.com/chuanghiduoc/progress-mailer/internal/repository"
	"github.com/chuanghiduoc/progress-mailer/internal/router"
	"github.com/chuanghiduoc/progress-mailer/internal/service"
	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
	"github.com/chuanghiduoc/progress-mailer/pkg/cache"
	"github.com/chuanghiduoc/progress-mailer/pkg/database"
	"github.com/chuanghiduoc/progress-mailer/pkg/email"
	"github.com/chuanghiduoc/progress-mailer/pkg/health"
	"github.com/chuanghiduoc/progress-mailer/pkg/logger"
	"github.com/chuanghiduoc/progress-mailer/pkg/storage"
)

// runShutdownTimeout bounds how long shutdown waits for background runs to
// record their partial reports.
const runShutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Setup structured logging
	logger.Setup(cfg.App.Env, cfg.App.LogLevel)

	ctx := context.Background()

	// Record store
	students, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open record store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	// Report archive
	store, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		slog.Error("failed to initialize storage", slog.Any("error", err))
		return
	}
	slog.Info("storage initialized", slog.String("driver", cfg.Storage.Driver))

	// Cache
	appCache, err := cache.NewCache(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", slog.Any("error", err))
		return
	}
	slog.Info("cache initialized", slog.String("driver", cfg.Cache.Driver))

	// Email
	emailSender, err := email.NewSender(cfg.Email)
	if err != nil {
		slog.Error("failed to initialize email sender", slog.Any("error", err))
		return
	}
	slog.Info("email sender initialized",
		slog.String("driver", cfg.Email.Driver),
		slog.Int("rate_per_sec", cfg.Email.RatePerSec),
	)

	renderer := mailmerge.NewRenderer(mailmerge.RendererConfig{
		ProgramLabel:    cfg.Mail.ProgramLabel,
		Department:      cfg.Mail.Department,
		DepartmentShort: cfg.Mail.DepartmentShort,
		SenderName:      cfg.Email.FromName,
		PortalURL:       cfg.Mail.PortalURL,
		ContactHours:    cfg.Mail.ContactHours,
	})

	// Dependency injection
	studentSvc := service.NewStudentService(students)
	mailSvc := service.NewMailService(renderer, emailSender, students, appCache, store, service.MailOptions{
		Pacing:   cfg.Mail.Pacing(),
		MaxBatch: cfg.Mail.MaxBatch,
		RunTTL:   cfg.Mail.RunTTL(),
	})

	// Health checker
	healthChecker := health.NewChecker(map[string]health.Pinger{
		"store": students,
		"cache": appCache,
	})

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ServerHeader: "progress-mailer",
		AppName:      "progress-mailer",
		ErrorHandler: apperror.FiberErrorHandler,
		BodyLimit:    cfg.App.BodyLimit,
	})

	// Setup routes
	router.SetupRoutes(app, router.Deps{
		StudentHandler: handler.NewStudentHandler(studentSvc),
		MailHandler:    handler.NewMailHandler(mailSvc),
		Config:         cfg,
		Health:         healthChecker,
	})

	// Graceful shutdown
	done := make(chan bool, 1)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		slog.Info("server starting", slog.String("addr", addr), slog.String("env", cfg.App.Env))
		if err := app.Listen(addr); err != nil {
			slog.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		slog.Info("shutting down gracefully, press Ctrl+C again to force")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			slog.Error("server forced to shutdown", slog.Any("error", err))
		}

		runCtx, runCancel := context.WithTimeout(context.Background(), runShutdownTimeout)
		defer runCancel()
		if err := mailSvc.Shutdown(runCtx); err != nil {
			slog.Error("background runs did not finish", slog.Any("error", err))
		}

		_ = appCache.Close()

		done <- true
	}()

	<-done
	slog.Info("server exited")
}

// openStore returns the configured record store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (repository.StudentRepository, func(), error) {
	if cfg.Store.Driver == "memory" {
		slog.Warn("using in-memory record store; data is lost on restart")
		return repository.NewMemoryStudentRepository(), func() {}, nil
	}

	pool, err := database.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	slog.Info("connected to database")

	if err := database.RunMigrations(cfg.DB.DSN(), cfg.Store.MigrationsPath); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("migrations completed")

	return repository.NewStudentRepository(pool), pool.Close, nil
}
