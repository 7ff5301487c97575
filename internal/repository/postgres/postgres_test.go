package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/atelier/internal/docstore"
	"github.com/kirinyoku/atelier/internal/postgres"
	"github.com/kirinyoku/atelier/internal/repository"
	"github.com/kirinyoku/atelier/internal/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	body []byte
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.body
	return nil
}

// fakeTx records documents written through it.
type fakeTx struct {
	docs    map[string][]byte
	execErr error
}

func (f *fakeTx) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	f.docs[args[0].(string)] = []byte(args[1].(string))
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeTx) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	body, ok := f.docs[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{body: body}
}

func TestDocumentRepoRunsOnLockTransaction(t *testing.T) {
	tx := &fakeTx{docs: map[string][]byte{}}
	ctx := withTx(context.Background(), tx)

	// No pool: any query outside the transaction would panic.
	repo := &DocumentRepo{}

	_, err := repo.Get(ctx, "bookings.json")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	require.NoError(t, repo.Put(ctx, "bookings.json", []byte(`[]`)))
	assert.Equal(t, []byte(`[]`), tx.docs["bookings.json"])

	body, err := repo.Get(ctx, "bookings.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), body)

	tx.execErr = &pgconn.PgError{Code: codeLockNotAvailable, Message: "canceling statement due to lock timeout"}
	err = repo.Put(ctx, "bookings.json", []byte(`[1]`))
	assert.ErrorIs(t, err, docstore.ErrUnavailable)
}

func TestWrapDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, repository.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: codeUniqueViolation}, repository.ErrConflict},
		{"lock timeout", &pgconn.PgError{Code: codeLockNotAvailable}, repository.ErrConflict},
		{"serialization", &pgconn.PgError{Code: codeSerializationFailure}, repository.ErrConflict},
		{"other", assert.AnError, assert.AnError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapDBErr("op", tt.err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.NoError(t, wrapDBErr("op", nil))
}

// TestAdvisoryLockerWithSmallPool runs more concurrent units of work than the
// pool has connections. It needs a real database.
func TestAdvisoryLockerWithSmallPool(t *testing.T) {
	dsn := os.Getenv("ATELIER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ATELIER_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewStore(pool)
	docs := store.Documents()
	require.NoError(t, docs.EnsureSchema(ctx))

	name := fmt.Sprintf("counter-%s.json", uuid.NewString())
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM documents WHERE name = $1`, name)
	})

	u := uow.NewUoW(store.Locker(5 * time.Second))

	const workers = 8
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- u.Do(ctx, []string{name}, func(ctx context.Context, _ func(uow.AfterCommit)) error {
				n, err := docstore.Read(ctx, docs, name, 0)
				if err != nil {
					return err
				}
				return docstore.Write(ctx, docs, name, n+1)
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	n, err := docstore.Read(ctx, docs, name, 0)
	require.NoError(t, err)
	assert.Equal(t, workers, n)

	boom := errors.New("boom")
	err = u.Do(ctx, []string{name}, func(ctx context.Context, _ func(uow.AfterCommit)) error {
		if err := docstore.Write(ctx, docs, name, 100); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err = docstore.Read(ctx, docs, name, 0)
	require.NoError(t, err)
	assert.Equal(t, workers, n, "failed work must be rolled back")
}
