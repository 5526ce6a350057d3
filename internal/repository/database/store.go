package database

import (
	"context"
	"errors"
	"fmt"

	"creditdesk/internal/config/connections/postgres"
	"creditdesk/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	DefaultCustomersTable = "customers"
	DefaultLoansTable     = "loans"
)

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store is the PostgreSQL data store for customers and loans.
type Store struct {
	pg *postgres.Postgres
	q  querier
	tx pgx.Tx

	*CustomersRepo
	*LoansRepo
}

func NewStore(pg *postgres.Postgres) *Store {
	return newStore(pg, pg.Pool, nil)
}

func newStore(pg *postgres.Postgres, q querier, tx pgx.Tx) *Store {
	return &Store{
		pg:            pg,
		q:             q,
		tx:            tx,
		CustomersRepo: NewCustomersRepo(q, DefaultCustomersTable),
		LoansRepo:     NewLoansRepo(q, DefaultLoansTable),
	}
}

// WithCustomerLock opens a transaction and locks the customer's row with
// SELECT ... FOR UPDATE before running fn. A missing customer row takes no
// lock; fn then sees the customer as absent.
func (s *Store) WithCustomerLock(ctx context.Context, customerID int64, fn func(ctx context.Context, st ports.Store) error) error {
	if s.tx != nil {
		if err := s.lockCustomer(ctx, s.tx, customerID); err != nil {
			return err
		}
		return fn(ctx, s)
	}

	tx, err := s.pg.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.lockCustomer(ctx, tx, customerID); err != nil {
		return err
	}

	if err := fn(ctx, newStore(s.pg, tx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) lockCustomer(ctx context.Context, tx pgx.Tx, customerID int64) error {
	var id int64
	err := tx.QueryRow(ctx,
		`SELECT customer_id FROM `+s.CustomersRepo.table+` WHERE customer_id = $1 FOR UPDATE`,
		customerID,
	).Scan(&id)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lock customer %d: %w", customerID, err)
	}
	return nil
}

var _ ports.Store = (*Store)(nil)
var _ ports.ImportStore = (*Store)(nil)
