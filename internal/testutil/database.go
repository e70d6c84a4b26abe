// Package testutil starts throwaway backing services for integration tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/chuanghiduoc/progress-mailer/pkg/database"
)

const postgresImage = "postgres:16-alpine"

// SetupTestDB starts PostgreSQL, applies the students schema and returns a
// small pool plus a cleanup function that stops the container.
func SetupTestDB(ctx context.Context) (*pgxpool.Pool, func(), error) {
	pgContainer, err := postgres.Run(ctx,
		postgresImage,
		postgres.WithDatabase("progress_mailer_test"),
		postgres.WithUsername("mailer"),
		postgres.WithPassword("mailer"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres: %w", err)
	}
	terminate := func() { _ = pgContainer.Terminate(context.Background()) }

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return nil, nil, err
	}

	if err := database.RunMigrations(connStr, migrationsPath()); err != nil {
		terminate()
		return nil, nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	poolCfg.MaxConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		terminate()
		return nil, nil, err
	}

	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}

// ResetStudents empties the students table between subtests.
func ResetStudents(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, "TRUNCATE students RESTART IDENTITY")
	return err
}

// migrationsPath resolves the migrations directory relative to this file.
func migrationsPath() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}
