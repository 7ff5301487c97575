package reviews

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirinyoku/atelier/internal/domain"
	"github.com/kirinyoku/atelier/internal/metrics"
	"github.com/kirinyoku/atelier/internal/notify"
	documentrepo "github.com/kirinyoku/atelier/internal/repository/document"
	redisrepo "github.com/kirinyoku/atelier/internal/repository/redis"
	"github.com/kirinyoku/atelier/internal/service/changefeed"
	"github.com/kirinyoku/atelier/internal/uow"
)

const (
	publicCacheTTL   = 5 * time.Minute
	maxCommentLength = 2000
)

var (
	ErrReviewNotFound = errors.New("review not found")
	ErrInvalidInput   = errors.New("invalid input")
)

type Notifier interface {
	ReviewSubmitted(ctx context.Context, r domain.Review) error
}

type Result struct {
	Review            domain.Review
	NotificationSent  bool
	NotificationError string
}

// Service stores customer reviews. New reviews stay hidden until an admin
// approves them.
type Service struct {
	store    *documentrepo.Store
	uow      *uow.UoW
	cache    *redisrepo.Cache
	feed     *changefeed.Feed
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func New(
	store *documentrepo.Store,
	u *uow.UoW,
	cache *redisrepo.Cache,
	feed *changefeed.Feed,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    store,
		uow:      u,
		cache:    cache,
		feed:     feed,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Submit(ctx context.Context, name string, rating int, comment string) (Result, error) {
	const op = "service.reviews.Submit"

	r := domain.Review{
		ID:      domain.NewID("review"),
		Name:    strings.TrimSpace(name),
		Rating:  rating,
		Comment: strings.TrimSpace(comment),
		Date:    s.now().UTC(),
	}

	switch {
	case r.Name == "":
		return Result{}, fmt.Errorf("%s:%w: name is required", op, ErrInvalidInput)
	case r.Rating < 1 || r.Rating > 5:
		return Result{}, fmt.Errorf("%s:%w: rating must be between 1 and 5", op, ErrInvalidInput)
	case r.Comment == "":
		return Result{}, fmt.Errorf("%s:%w: comment is required", op, ErrInvalidInput)
	case utf8.RuneCountInString(r.Comment) > maxCommentLength:
		return Result{}, fmt.Errorf("%s:%w: comment is too long", op, ErrInvalidInput)
	}

	err := s.uow.Do(ctx, []string{documentrepo.ReviewsDoc}, func(ctx context.Context, _ func(uow.AfterCommit)) error {
		all, err := s.store.Reviews().Load(ctx)
		if err != nil {
			return err
		}
		return s.store.Reviews().Save(ctx, append(all, r))
	})
	if err != nil {
		return Result{}, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("review submitted", "review_id", r.ID, "rating", r.Rating)

	res := Result{Review: r}
	if s.notifier == nil {
		res.NotificationError = notify.ErrNotConfigured.Error()
		return res, nil
	}

	out := notify.Deliver(ctx, s.logger, s.metrics, "review submitted", func(ctx context.Context) error {
		return s.notifier.ReviewSubmitted(ctx, r)
	})
	res.NotificationSent = out.Sent
	res.NotificationError = out.Error

	return res, nil
}

// ListApproved returns the public reviews, newest first.
func (s *Service) ListApproved(ctx context.Context) ([]domain.Review, error) {
	const op = "service.reviews.ListApproved"

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyApprovedReviews(), publicCacheTTL,
		func(ctx context.Context) ([]domain.Review, error) {
			all, err := s.ListAll(ctx)
			if err != nil {
				return nil, err
			}
			return slices.DeleteFunc(all, func(r domain.Review) bool { return !r.Approved }), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Review, error) {
	const op = "service.reviews.ListAll"

	all, err := s.store.Reviews().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	slices.SortStableFunc(all, func(a, b domain.Review) int {
		return cmp.Compare(b.Date.UnixNano(), a.Date.UnixNano())
	})

	return all, nil
}

func (s *Service) SetApproved(ctx context.Context, id string, approved bool) (domain.Review, error) {
	const op = "service.reviews.SetApproved"

	var out domain.Review

	err := s.uow.Do(ctx, []string{documentrepo.ReviewsDoc}, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		all, err := s.store.Reviews().Load(ctx)
		if err != nil {
			return err
		}

		i := slices.IndexFunc(all, func(r domain.Review) bool { return r.ID == id })
		if i < 0 {
			return ErrReviewNotFound
		}

		all[i].Approved = approved
		if err := s.store.Reviews().Save(ctx, all); err != nil {
			return err
		}

		out = all[i]
		after(s.feed.Hook(domain.ChangeReview, id))
		return nil
	})
	if err != nil {
		return domain.Review{}, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "service.reviews.Delete"

	err := s.uow.Do(ctx, []string{documentrepo.ReviewsDoc}, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		all, err := s.store.Reviews().Load(ctx)
		if err != nil {
			return err
		}

		kept := slices.DeleteFunc(all, func(r domain.Review) bool { return r.ID == id })
		if len(kept) == len(all) {
			return ErrReviewNotFound
		}

		if err := s.store.Reviews().Save(ctx, kept); err != nil {
			return err
		}

		after(s.feed.Hook(domain.ChangeReview, id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
