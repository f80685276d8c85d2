// Package pgfake provides a db.DBTX whose statements fail with a chosen
// server error, for exercising constraint mapping without a database.
package pgfake

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rbacgate/rbacgate/internal/platform/db"
)

// Conn fails every statement with Err and records the SQL it received.
type Conn struct {
	Err     error
	Queries []string
}

// Violation returns a Conn failing with SQLSTATE code on constraint.
func Violation(code, constraint string) *Conn {
	return &Conn{Err: &pgconn.PgError{Code: code, ConstraintName: constraint}}
}

func (c *Conn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.Queries = append(c.Queries, sql)
	return pgconn.CommandTag{}, c.Err
}

func (c *Conn) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	c.Queries = append(c.Queries, sql)
	return nil, c.Err
}

func (c *Conn) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	c.Queries = append(c.Queries, sql)
	return row{err: c.Err}
}

type row struct{ err error }

func (r row) Scan(...any) error { return r.err }

var _ db.DBTX = (*Conn)(nil)
