package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// withTx binds tx to ctx so repositories run on the locked transaction.
func withTx(ctx context.Context, tx DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFrom(ctx context.Context) (DB, bool) {
	tx, ok := ctx.Value(txKey{}).(DB)
	return tx, ok
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// BeginTx starts a read-write transaction with the given isolation level.
func (s *Store) BeginTx(ctx context.Context, iso pgx.TxIsoLevel) (pgx.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   iso,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}

	return tx, nil
}

func (s *Store) Documents() *DocumentRepo { return &DocumentRepo{pool: s.pool} }

// Locker returns an advisory locker that gives up after wait.
func (s *Store) Locker(wait time.Duration) *AdvisoryLocker {
	return &AdvisoryLocker{store: s, wait: wait}
}
