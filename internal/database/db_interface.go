// Package database provides the SQL connection pool, transaction helper and
// the Redis client used by the hyperauth service.
package database

import (
	"context"
	"database/sql"
)

// SQLExecutor is the subset of *sql.DB and *sql.Tx used by the repositories.
// Repositories accept it so the same code path runs inside and outside a
// transaction.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Ensure both sql.DB and sql.Tx implement SQLExecutor.
var (
	_ SQLExecutor = (*sql.DB)(nil)
	_ SQLExecutor = (*sql.Tx)(nil)
)
