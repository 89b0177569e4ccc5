// Package dbx holds the database/sql plumbing shared by the Postgres
// repositories: the DBTX handle they are bound to, transaction scoping and
// the per-key advisory lock that serializes admissions of one identity.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn in a transaction and commits only if fn returns nil.
// A panic in fn rolls back and is re-raised.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
	}()

	return fn(ctx, tx)
}

const advisoryLockQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

// AdvisoryXactLock blocks until the Postgres advisory lock for key is
// held. The lock is released when tx ends, so tx must be a transaction.
func AdvisoryXactLock(ctx context.Context, tx DBTX, key string) error {
	if _, err := tx.ExecContext(ctx, advisoryLockQuery, key); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}
