package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is wrapped by every "no such row" error of this package.
var ErrNotFound = errors.New("not found")

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// InTx runs fn inside a transaction. The transaction is committed only when
// fn returns nil; any error rolls back every write made through tx.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = fn(tx)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// forUpdate returns the row-lock suffix for drivers that support it.
// SQLite transactions are opened with BEGIN IMMEDIATE and hold the write
// lock for their whole lifetime instead.
func forUpdate(q DBTX) string {
	if q.DriverName() == "pgx" || q.DriverName() == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}

func affected(result interface{ RowsAffected() (int64, error) }, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return notFound
	}

	return nil
}
