package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Isolation levels used by repositories.
var (
	// LedgerTx is used by stock mutations: rows are locked with SELECT ... FOR UPDATE,
	// so waiters must re-read the committed stock instead of failing with a
	// serialization error.
	LedgerTx = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	// DefaultTx is used by every other multi-statement write.
	DefaultTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead}
)

// WithTx executes fn inside a transaction. It commits when fn returns nil and
// rolls back on error or panic; the connection is returned to the pool on every path.
func WithTx(ctx context.Context, pool *pgxpool.Pool, opts pgx.TxOptions, fn func(pgx.Tx) error) (err error) {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
