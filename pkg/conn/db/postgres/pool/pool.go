// Package pool narrows pgx connections to what the storefront repositories use.
//
// Repositories take these interfaces instead of pgx types, so that one
// function works the same on a pool and inside a transaction.
package pool

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Queryer sends SQL. It is satisfied by the pool and by transactions.
type Queryer interface {
	// Exec sends a statement without result rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)

	// QueryRow sends a statement having just one result row.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Begin starts a transaction. On a Tx, it starts a savepoint.
type Begin interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a subset of pgx.Tx.
//
// pgx.Tx cannot be a Tx as is, because its Begin returns pgx.Tx.
type Tx interface {
	Queryer
	Begin

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Pool is a subset of *pgxpool.Pool. Make one with Wrap.
type Pool interface {
	Queryer
	Begin

	Ping(ctx context.Context) error
	Close()
}

type tx struct {
	pgx.Tx
}

func (t tx) Begin(ctx context.Context) (Tx, error) {
	return wrapTx(t.Tx.Begin(ctx))
}

type pgxPool struct {
	*pgxpool.Pool
}

func (p pgxPool) Begin(ctx context.Context) (Tx, error) {
	return wrapTx(p.Pool.Begin(ctx))
}

func wrapTx(t pgx.Tx, err error) (Tx, error) {
	if t == nil {
		return nil, err
	}
	return tx{t}, err
}

var (
	_ Tx   = tx{}
	_ Pool = pgxPool{}
)

func Wrap(p *pgxpool.Pool) Pool {
	return pgxPool{p}
}
