// Package store implements the persistence layer on PostgreSQL. It provides
// the session, turn, item audit, and inventory operations the chat and audit
// packages consume through their store interfaces.
package store

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the query surface the repositories need. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles all repositories over one Querier.
type Store struct {
	db Querier
}

// New creates a Store over the given Querier.
func New(db Querier) *Store {
	return &Store{db: db}
}

// builder is the squirrel starting point with Postgres placeholders.
var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
