package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	finishTimeout   = 5 * time.Second
	defaultLockWait = 5 * time.Second
)

// AdvisoryLocker serializes work on document names across replicas that share
// the PostgreSQL backend. Locks are transaction scoped: the documents are read
// and written on that same transaction and the locks go away with its commit
// or rollback.
type AdvisoryLocker struct {
	store *Store
	wait  time.Duration
}

// LockScope begins a transaction and takes one advisory lock per name in the
// given order. The caller is expected to pass names sorted so concurrent
// lockers cannot deadlock. Waiting longer than the lock wait fails with a
// lock_not_available error.
func (l *AdvisoryLocker) LockScope(ctx context.Context, names ...string) (context.Context, func(error) error, error) {
	const op = "postgresrepo.AdvisoryLocker.LockScope"

	wait := l.wait
	if wait <= 0 {
		wait = defaultLockWait
	}

	tx, err := l.store.BeginTx(ctx, pgx.ReadCommitted)
	if err != nil {
		return nil, nil, fmt.Errorf("%s:%w", op, err)
	}

	rollback := func() {
		ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
		defer cancel()
		_ = tx.Rollback(ctx)
	}

	if _, err := tx.Exec(ctx,
		`SELECT set_config('lock_timeout', $1, true)`,
		fmt.Sprintf("%dms", wait.Milliseconds()),
	); err != nil {
		rollback()
		return nil, nil, wrapDBErr(op, err)
	}

	for _, name := range names {
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			"atelier:"+name,
		); err != nil {
			rollback()
			return nil, nil, wrapDBErr(op, err)
		}
	}

	finish := func(workErr error) error {
		ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
		defer cancel()

		if workErr != nil {
			return tx.Rollback(ctx)
		}
		if err := tx.Commit(ctx); err != nil {
			return wrapDBErr(op, err)
		}
		return nil
	}

	return withTx(ctx, tx), finish, nil
}

// Lock is LockScope for callers that do not run their work on the
// transaction; unlocking commits it.
func (l *AdvisoryLocker) Lock(ctx context.Context, names ...string) (func(), error) {
	_, finish, err := l.LockScope(ctx, names...)
	if err != nil {
		return nil, err
	}
	return func() { _ = finish(nil) }, nil
}
