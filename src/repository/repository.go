package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so the same scan helpers
// serve plain queries and transactional ones.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (code 23505). The partial unique indexes turn lost races into
// this error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
