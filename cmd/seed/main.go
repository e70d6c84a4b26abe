package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/chuanghiduoc/progress-mailer/config"
	"github.com/chuanghiduoc/progress-mailer/internal/repository"
	"github.com/chuanghiduoc/progress-mailer/internal/seed"
	"github.com/chuanghiduoc/progress-mailer/pkg/database"
	"github.com/chuanghiduoc/progress-mailer/pkg/logger"
)

func main() {
	file := flag.String("file", "", "path to a roster CSV ("+fmt.Sprint(seed.RosterColumns)+")")
	flag.Parse()

	if err := run(*file); err != nil {
		slog.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(path string) error {
	if path == "" {
		return errors.New("-file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Setup(cfg.App.Env, cfg.App.LogLevel)

	if cfg.Store.Driver != "postgres" {
		return fmt.Errorf("roster import needs STORE_DRIVER=postgres (got %q)", cfg.Store.Driver)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), cfg.Store.MigrationsPath); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	res, err := seed.Students(ctx, f, repository.NewStudentRepository(pool))
	if err != nil {
		return fmt.Errorf("import roster: %w", err)
	}

	for _, rej := range res.Rejected {
		slog.Warn("row rejected", slog.Int("line", rej.Line), slog.String("reason", rej.Reason))
	}
	slog.Info("seed completed", slog.Int("imported", res.Imported), slog.Int("rejected", len(res.Rejected)))
	return nil
}
