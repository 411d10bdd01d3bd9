package storage

import (
	"context"
	"errors"
)

// ErrStatementFailed wraps any error returned by the database for a generated
// statement.
var ErrStatementFailed = errors.New("statement failed")

// StatementExecutor runs generated SQL statements. It never returns rows.
type StatementExecutor interface {
	Exec(ctx context.Context, statement string) error
}

// Pinger reports whether the underlying database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
