package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Beginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithSnapshot runs fn inside a read-only RepeatableRead transaction so every
// query issued by fn observes the same snapshot. The transaction is always
// rolled back; nothing is written.
func WithSnapshot(ctx context.Context, db Beginner, fn func(pgx.Tx) error) error {
	if db == nil {
		return fmt.Errorf("platform/db: no connection")
	}
	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("platform/db: begin snapshot: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	return fn(tx)
}

var _ Beginner = (*pgxpool.Pool)(nil)
