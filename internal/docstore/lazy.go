package docstore

import (
	"context"
	"fmt"
	"sync"
)

type Backend string

const (
	BackendLocal    Backend = "local"
	BackendS3       Backend = "s3"
	BackendPostgres Backend = "postgres"
)

// SelectBackend picks the backend from configuration presence alone: a
// complete S3 config wins, then a PostgreSQL DSN, then the local filesystem.
func SelectBackend(s3 S3Config, postgresDSN string) Backend {
	switch {
	case s3.Complete():
		return BackendS3
	case postgresDSN != "":
		return BackendPostgres
	default:
		return BackendLocal
	}
}

type Opener func(ctx context.Context) (Store, error)

// Lazy opens its backend on first use and keeps it for the process lifetime.
// A failed open is not cached, so the next call tries again.
type Lazy struct {
	mu    sync.Mutex
	open  Opener
	store Store
}

func NewLazy(open Opener) *Lazy {
	return &Lazy{open: open}
}

func (l *Lazy) resolve(ctx context.Context) (Store, error) {
	const op = "docstore.Lazy.resolve"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		return l.store, nil
	}

	s, err := l.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	l.store = s

	return s, nil
}

func (l *Lazy) Get(ctx context.Context, name string) ([]byte, error) {
	s, err := l.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, name)
}

func (l *Lazy) Put(ctx context.Context, name string, data []byte) error {
	s, err := l.resolve(ctx)
	if err != nil {
		return err
	}
	return s.Put(ctx, name, data)
}

// Close closes the resolved backend if it holds resources.
func (l *Lazy) Close() error {
	l.mu.Lock()
	s := l.store
	l.mu.Unlock()

	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
