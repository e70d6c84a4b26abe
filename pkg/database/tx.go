package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxManager runs a unit of work inside one transaction.
type TxManager struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewTxManager uses READ COMMITTED, which is enough for status write-back:
// each statement targets one row by primary key.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

// WithTx commits when fn returns nil. Any error, or a panic in fn, rolls
// the whole unit back.
func (tm *TxManager) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if err := pgx.BeginTxFunc(ctx, tm.pool, tm.opts, fn); err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	return nil
}
