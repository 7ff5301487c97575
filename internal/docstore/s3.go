package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"sync"
	"time"
)

const (
	defaultMaxBackups = 10
	backupTimeLayout  = "20060102T150405.000000000Z"
	pruneTimeout      = 30 * time.Second
)

type ObjectInfo struct {
	Key          string
	LastModified time.Time
}

// ObjectClient is the subset of an S3 API used by the S3 store.
// GetObject and CopyObject return ErrNotFound for a missing source key.
type ObjectClient interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	CopyObject(ctx context.Context, srcKey, dstKey string) error
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	RemoveObject(ctx context.Context, key string) error
}

type S3Options struct {
	Prefix     string
	MaxBackups int
	Logger     *slog.Logger
}

// S3 stores documents as objects. Every overwrite first copies the current
// object to a timestamped backup key; old backups are pruned in the
// background.
type S3 struct {
	client     ObjectClient
	prefix     string
	maxBackups int
	logger     *slog.Logger
	now        func() time.Time

	pruning sync.WaitGroup
}

func NewS3(client ObjectClient, opts S3Options) *S3 {
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = defaultMaxBackups
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &S3{
		client:     client,
		prefix:     opts.Prefix,
		maxBackups: opts.MaxBackups,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

func (s *S3) key(name string) string {
	return s.prefix + name
}

func (s *S3) backupPrefix(name string) string {
	return s.prefix + path.Join("backups", name) + "/"
}

func (s *S3) Get(ctx context.Context, name string) ([]byte, error) {
	const op = "docstore.S3.Get"

	if err := validName(name); err != nil {
		return nil, err
	}

	b, err := s.client.GetObject(ctx, s.key(name))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}

	return b, nil
}

func (s *S3) Put(ctx context.Context, name string, data []byte) error {
	const op = "docstore.S3.Put"

	if err := validName(name); err != nil {
		return err
	}

	key := s.key(name)
	backupKey := s.backupPrefix(name) + s.now().UTC().Format(backupTimeLayout) + ".json"

	err := s.client.CopyObject(ctx, key, backupKey)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		s.logger.Warn("document backup failed", "name", name, "backup", backupKey, "error", err)
	}

	if err := s.client.PutObject(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}

	s.pruning.Add(1)
	go func() {
		defer s.pruning.Done()

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pruneTimeout)
		defer cancel()

		if err := s.prune(pctx, name); err != nil {
			s.logger.Warn("backup pruning failed", "name", name, "error", err)
		}
	}()

	return nil
}

// prune removes all but the newest maxBackups backups of name.
func (s *S3) prune(ctx context.Context, name string) error {
	objs, err := s.client.ListObjects(ctx, s.backupPrefix(name))
	if err != nil {
		return err
	}
	if len(objs) <= s.maxBackups {
		return nil
	}

	sort.Slice(objs, func(i, j int) bool {
		return objs[i].Key > objs[j].Key
	})

	var errs []error
	for _, o := range objs[s.maxBackups:] {
		if err := s.client.RemoveObject(ctx, o.Key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Key, err))
		}
	}

	return errors.Join(errs...)
}

// Close waits for in-flight backup pruning.
func (s *S3) Close() error {
	s.pruning.Wait()
	return nil
}
