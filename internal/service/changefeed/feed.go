// Package changefeed turns committed mutations into cache invalidations and
// change events.
package changefeed

import (
	"context"
	"log/slog"

	"github.com/kirinyoku/atelier/internal/domain"
	redisrepo "github.com/kirinyoku/atelier/internal/repository/redis"
	"github.com/kirinyoku/atelier/internal/uow"
)

type Publisher interface {
	PublishChange(ctx context.Context, kind domain.ChangeKind, id string) error
}

// Feed is safe to use as a nil pointer, and either collaborator may be nil.
type Feed struct {
	cache     *redisrepo.Cache
	publisher Publisher
	logger    *slog.Logger
}

func New(cache *redisrepo.Cache, publisher Publisher, logger *slog.Logger) *Feed {
	return &Feed{cache: cache, publisher: publisher, logger: logger}
}

// Hook returns an after-commit hook announcing a change of kind for id.
func (f *Feed) Hook(kind domain.ChangeKind, id string) uow.AfterCommit {
	return func(ctx context.Context) {
		if f == nil {
			return
		}
		if f.cache != nil {
			if err := f.cache.Invalidate(ctx, kind); err != nil {
				f.logger.Warn("cache invalidation failed", "kind", kind, "error", err)
			}
		}
		if f.publisher != nil {
			if err := f.publisher.PublishChange(ctx, kind, id); err != nil {
				f.logger.Warn("change publish failed", "kind", kind, "id", id, "error", err)
			}
		}
	}
}
