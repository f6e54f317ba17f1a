// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// a helper to run functions inside a transaction, and a validated
// per-tenant schema identifier.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    // use tx instead of db
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
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
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// Schema is a validated Postgres schema name used to address one tenant's
// tables. Tenant rows live in per-tenant schemas; the shared schema holds
// cross-tenant tables (tenants, cars, restore_requests).
type Schema string

// SharedSchema holds the cross-tenant tables.
const SharedSchema Schema = "shared"

var schemaNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// NewSchema validates name as a safe lowercase identifier. Validation is the
// only defense before the name is interpolated into DDL and queries, so
// every externally supplied tenant name must pass through here.
func NewSchema(name string) (Schema, error) {
	if !schemaNameRe.MatchString(name) {
		return "", fmt.Errorf("invalid schema name: %q", name)
	}
	return Schema(name), nil
}

// Qualify returns the schema-qualified table name.
func (s Schema) Qualify(table string) string {
	return string(s) + "." + table
}
