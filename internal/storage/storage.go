package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Scope marks an open transactional scope. Repositories accept a Scope so a
// multi-step flow commits or rolls back as one unit. A nil Scope means the
// operation runs standalone against the pool.
type Scope any

// TxManager runs a function inside a single atomic scope.
type TxManager interface {
	InTx(ctx context.Context, fn func(ctx context.Context, scope Scope) error) error
}

// Querier is the query surface shared by pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxManager implements TxManager over a pgx connection pool.
type PgxManager struct {
	pool *pgxpool.Pool
}

// NewPgxManager builds a transaction manager backed by PostgreSQL.
func NewPgxManager(pool *pgxpool.Pool) *PgxManager {
	return &PgxManager{pool: pool}
}

// InTx begins a read-committed transaction, passes it to fn as the scope and
// commits only if fn returns nil. Any error aborts the whole scope.
func (m *PgxManager) InTx(ctx context.Context, fn func(ctx context.Context, scope Scope) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// QuerierFor resolves the querier for a scope: the enclosing transaction when
// present, the pool otherwise.
func QuerierFor(scope Scope, pool *pgxpool.Pool) Querier {
	if tx, ok := scope.(pgx.Tx); ok {
		return tx
	}
	return pool
}

// InTx reports whether the scope carries an open pgx transaction.
func InTx(scope Scope) bool {
	_, ok := scope.(pgx.Tx)
	return ok
}
