package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStaleStatus is returned when a guarded update finds the ticket in a
	// different status than the caller read.
	ErrStaleStatus = errors.New("ticket status changed concurrently")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRepositories are the repositories bound to one open transaction. Reads
// made while the ticket row is locked go through these so a unit of work
// never needs a second pooled connection.
type TxRepositories struct {
	Tickets TicketRepository
	History TicketHistoryRepository
	Rules   TransitionRuleRepository
	Catalog CatalogRepository
}

// TxManager runs a unit of work atomically.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}

type pgTxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager builds a TxManager on top of a pgx pool.
func NewTxManager(pool *pgxpool.Pool) TxManager {
	return &pgTxManager{pool: pool}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (m *pgTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error {
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		return fn(ctx, TxRepositories{
			Tickets: NewTicketRepository(tx),
			History: NewTicketHistoryRepository(tx),
			Rules:   NewTransitionRuleRepository(tx),
			Catalog: NewCatalogRepository(tx),
		})
	})
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
