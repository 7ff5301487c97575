package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/atelier/internal/docstore"
	"github.com/kirinyoku/atelier/internal/repository"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
    name       text PRIMARY KEY,
    body       jsonb NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
)`

// DocumentRepo stores named JSON documents in a single table. It satisfies
// docstore.Store. Inside a unit of work locked by AdvisoryLocker every query
// runs on the lock's transaction, so a mutation never needs a second
// connection and a failed mutation is rolled back as a whole.
type DocumentRepo struct {
	pool *pgxpool.Pool
}

func (r *DocumentRepo) handle(ctx context.Context) DB {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return r.pool
}

func (r *DocumentRepo) EnsureSchema(ctx context.Context) error {
	const op = "postgresrepo.DocumentRepo.EnsureSchema"

	if _, err := r.pool.Exec(ctx, documentsSchema); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *DocumentRepo) Get(ctx context.Context, name string) ([]byte, error) {
	const op = "postgresrepo.DocumentRepo.Get"

	var body []byte
	err := r.handle(ctx).QueryRow(ctx,
		`SELECT body FROM documents WHERE name = $1`,
		name,
	).Scan(&body)
	if err != nil {
		err = wrapDBErr(op, err)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	}

	return body, nil
}

func (r *DocumentRepo) Put(ctx context.Context, name string, data []byte) error {
	const op = "postgresrepo.DocumentRepo.Put"

	_, err := r.handle(ctx).Exec(ctx,
		`INSERT INTO documents(name, body, updated_at)
		 VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (name) DO UPDATE
		 SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		name, string(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", docstore.ErrUnavailable, wrapDBErr(op, err))
	}

	return nil
}
