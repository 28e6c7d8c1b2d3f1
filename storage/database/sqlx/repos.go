// Package sqlxrepos implements the domain repositories on top of sqlx.
// Queries are written with `?` placeholders and rebound for the driver (postgres or sqlite3).
package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// trapNoRowsErr maps sql.ErrNoRows to notFound.
func trapNoRowsErr(err, notFound error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return err
}

func newID() string {
	return uuid.New().String()
}

func get(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return exec.GetContext(ctx, dest, exec.Rebind(query), args...)
}

func sel(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return exec.SelectContext(ctx, dest, exec.Rebind(query), args...)
}

func exec(ctx context.Context, ex core.DBExecutor, query string, args ...interface{}) (int64, error) {
	res, err := ex.ExecContext(ctx, ex.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// in expands a `?` placeholder bound to a slice into one placeholder per element.
func in(query string, args ...interface{}) (string, []interface{}, error) {
	return sqlx.In(query, args...)
}

func exists(ctx context.Context, ex core.DBExecutor, table, id string) (bool, error) {
	var count int
	if err := get(ctx, ex, &count, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", id); err != nil {
		return false, err
	}
	return count > 0, nil
}

// withTx runs fn in a transaction, committing when it returns nil.
func withTx(ctx context.Context, db core.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
