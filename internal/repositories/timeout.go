package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const DefaultDBTimeout = 5 * time.Second

func withDBTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultDBTimeout)
}

// withTx runs fn inside a transaction bounded by the default timeout.
// The transaction is rolled back unless fn returns nil and the commit succeeds.
func withTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) error) error {
	dbCtx, cancel := withDBTimeout(ctx)
	defer cancel()

	tx, err := db.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(dbCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
