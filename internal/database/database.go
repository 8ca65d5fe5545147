// Package database is the hand-rolled query layer over pgx. It keeps the
// DBTX/Queries shape so services can run the same queries against a pool or
// an open transaction.
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Postgres error codes the services inspect.
const (
	PgCodeUniqueViolation = "23505"
	PgCodeCheckViolation  = "23514"
)

// CapacityConstraint names the CHECK guarding menu_items.total_orders_left.
// A 23514 on this constraint is the authoritative capacity rejection.
const CapacityConstraint = "menu_items_total_orders_left_check"
