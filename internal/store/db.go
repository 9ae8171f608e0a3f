package store

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by SQL-backed stores. It is
// satisfied by both *sql.DB and *sql.Tx, so a store can run inside or
// outside a transaction without caring which.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
