// Package store holds the parameterized queries over the household database.
// Lookups return (nil, nil) when a row does not exist; mutations return a
// model.Error for client-visible failures.
package store

import (
	"context"
	"database/sql"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
