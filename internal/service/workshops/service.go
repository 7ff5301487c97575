package workshops

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/kirinyoku/atelier/internal/domain"
	"github.com/kirinyoku/atelier/internal/metrics"
	"github.com/kirinyoku/atelier/internal/notify"
	documentrepo "github.com/kirinyoku/atelier/internal/repository/document"
	redisrepo "github.com/kirinyoku/atelier/internal/repository/redis"
	"github.com/kirinyoku/atelier/internal/service/changefeed"
	"github.com/kirinyoku/atelier/internal/uow"
	"golang.org/x/sync/errgroup"
)

const (
	ledger         = "workshop"
	publicCacheTTL = time.Minute
	unknownTitle   = "unknown"
)

// Service manages workshop definitions and their bookings. Remaining spots
// are never stored; they are derived from the bookings on every read.
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

// List returns workshops ordered by date. Inactive ones are skipped unless
// includeInactive is set.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]domain.Workshop, error) {
	const op = "service.workshops.List"

	all, err := s.store.Workshops().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out := make([]domain.Workshop, 0, len(all))
	for _, w := range all {
		if w.Active || includeInactive {
			out = append(out, w)
		}
	}
	sortWorkshops(out)

	return out, nil
}

// ListPublic returns active workshops with their remaining spots.
func (s *Service) ListPublic(ctx context.Context) ([]Public, error) {
	const op = "service.workshops.ListPublic"

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyPublicWorkshops(), publicCacheTTL, s.loadPublic)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) loadPublic(ctx context.Context) ([]Public, error) {
	var (
		workshops []domain.Workshop
		bookings  []domain.WorkshopBooking
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		workshops, err = s.List(gctx, false)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = s.store.WorkshopBookings().Load(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Public, 0, len(workshops))
	for _, w := range workshops {
		out = append(out, Public{Workshop: w, RemainingSpots: domain.RemainingSpots(w, bookings)})
	}

	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Workshop, error) {
	const op = "service.workshops.Get"

	all, err := s.store.Workshops().Load(ctx)
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("%s:%w", op, err)
	}

	i := slices.IndexFunc(all, func(w domain.Workshop) bool { return w.ID == id })
	if i < 0 {
		return domain.Workshop{}, fmt.Errorf("%s:%w", op, ErrWorkshopNotFound)
	}

	return all[i], nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Workshop, error) {
	const op = "service.workshops.Create"

	w := domain.Workshop{
		ID:                  domain.NewID("ws"),
		Title:               strings.TrimSpace(in.Title),
		Description:         strings.TrimSpace(in.Description),
		DetailedDescription: strings.TrimSpace(in.DetailedDescription),
		Date:                in.Date,
		Time:                in.Time,
		Price:               strings.TrimSpace(in.Price),
		MaxParticipants:     in.MaxParticipants,
		Active:              in.Active,
		ImageFilename:       strings.TrimSpace(in.ImageFilename),
		CreatedAt:           s.now().UTC(),
	}
	if err := validateWorkshop(w); err != nil {
		return domain.Workshop{}, fmt.Errorf("%s:%w", op, err)
	}

	err := s.uow.Do(ctx, []string{documentrepo.WorkshopsDoc}, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		all, err := s.store.Workshops().Load(ctx)
		if err != nil {
			return err
		}

		if err := s.store.Workshops().Save(ctx, append(all, w)); err != nil {
			return err
		}

		after(s.feed.Hook(domain.ChangeWorkshop, w.ID))
		return nil
	})
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("workshop created", "workshop_id", w.ID, "date", w.Date, "max_participants", w.MaxParticipants)

	return w, nil
}

// Update applies the field update set. Lowering maxParticipants below the
// seats already taken is allowed; remaining spots then read as zero.
func (s *Service) Update(ctx context.Context, id string, u domain.WorkshopUpdate) (domain.Workshop, error) {
	const op = "service.workshops.Update"

	var updated domain.Workshop

	err := s.uow.Do(ctx, []string{documentrepo.WorkshopsDoc}, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		all, err := s.store.Workshops().Load(ctx)
		if err != nil {
			return err
		}

		i := slices.IndexFunc(all, func(w domain.Workshop) bool { return w.ID == id })
		if i < 0 {
			return ErrWorkshopNotFound
		}

		w := all[i]
		applyUpdate(&w, u)
		if err := validateWorkshop(w); err != nil {
			return err
		}

		all[i] = w
		if err := s.store.Workshops().Save(ctx, all); err != nil {
			return err
		}

		updated = w
		after(s.feed.Hook(domain.ChangeWorkshop, id))
		return nil
	})
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("%s:%w", op, err)
	}

	return updated, nil
}

// Delete removes the workshop definition. Its bookings are kept and show up
// with an unknown title in the admin listing.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "service.workshops.Delete"

	err := s.uow.Do(ctx, []string{documentrepo.WorkshopsDoc}, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		all, err := s.store.Workshops().Load(ctx)
		if err != nil {
			return err
		}

		kept := slices.DeleteFunc(all, func(w domain.Workshop) bool { return w.ID == id })
		if len(kept) == len(all) {
			return ErrWorkshopNotFound
		}

		if err := s.store.Workshops().Save(ctx, kept); err != nil {
			return err
		}

		after(s.feed.Hook(domain.ChangeWorkshop, id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("workshop deleted", "workshop_id", id)

	return nil
}

// Remaining returns the free spots of a workshop.
func (s *Service) Remaining(ctx context.Context, workshopID string) (int, error) {
	const op = "service.workshops.Remaining"

	w, err := s.Get(ctx, workshopID)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	bookings, err := s.store.WorkshopBookings().Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return domain.RemainingSpots(w, bookings), nil
}

// Book registers participants for an active workshop. The capacity check
// and the append happen under one lock so concurrent requests cannot both
// take the last spot.
func (s *Service) Book(ctx context.Context, in BookInput) (Result, error) {
	const op = "service.workshops.Book"

	b, err := s.newBooking(in)
	if err != nil {
		s.metrics.BookingEvent(ledger, "rejected")
		return Result{}, fmt.Errorf("%s:%w", op, err)
	}

	var w domain.Workshop

	err = s.uow.Do(ctx, []string{documentrepo.WorkshopsDoc, documentrepo.WorkshopBookingsDoc}, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		all, err := s.store.Workshops().Load(ctx)
		if err != nil {
			return err
		}

		i := slices.IndexFunc(all, func(w domain.Workshop) bool { return w.ID == b.WorkshopID })
		if i < 0 {
			return ErrWorkshopNotFound
		}
		w = all[i]
		if !w.Active {
			return ErrWorkshopInactive
		}

		bookings, err := s.store.WorkshopBookings().Load(ctx)
		if err != nil {
			return err
		}

		if remaining := domain.RemainingSpots(w, bookings); b.Participants > remaining {
			return &NotEnoughSpotsError{Available: remaining}
		}

		if err := s.store.WorkshopBookings().Save(ctx, append(bookings, b)); err != nil {
			return err
		}

		after(s.feed.Hook(domain.ChangeWorkshop, w.ID))
		return nil
	})
	if err != nil {
		s.metrics.BookingEvent(ledger, "rejected")
		return Result{}, fmt.Errorf("%s:%w", op, err)
	}

	s.metrics.BookingEvent(ledger, "created")
	s.logger.Info("workshop booking created", "booking_id", b.ID, "workshop_id", w.ID, "participants", b.Participants)

	out := s.deliver(ctx, "workshop booking created", func(ctx context.Context) error {
		return s.notifier.WorkshopBookingCreated(ctx, b, w)
	})

	return Result{Booking: b, NotificationSent: out.Sent, NotificationError: out.Error}, nil
}

// ConfirmBooking marks a pending booking confirmed and sends the invite.
// Confirming twice is a no-op without a second email.
func (s *Service) ConfirmBooking(ctx context.Context, id string) (Result, error) {
	const op = "service.workshops.ConfirmBooking"

	b, changed, err := s.transition(ctx, id, domain.StatusConfirmed)
	if err != nil {
		return Result{}, fmt.Errorf("%s:%w", op, err)
	}

	res := Result{Booking: b}
	if !changed {
		return res, nil
	}

	s.metrics.BookingEvent(ledger, "confirmed")
	s.logger.Info("workshop booking confirmed", "booking_id", id, "workshop_id", b.WorkshopID)

	out := s.deliver(ctx, "workshop booking confirmed", func(ctx context.Context) error {
		w, err := s.Get(ctx, b.WorkshopID)
		if err != nil {
			return err
		}
		return s.notifier.WorkshopBookingConfirmed(ctx, b, w)
	})
	res.NotificationSent = out.Sent
	res.NotificationError = out.Error

	return res, nil
}

// CancelBooking frees the booking's spots. Cancelled is terminal.
func (s *Service) CancelBooking(ctx context.Context, id string) (domain.WorkshopBooking, error) {
	const op = "service.workshops.CancelBooking"

	b, _, err := s.transition(ctx, id, domain.StatusCancelled)
	if err != nil {
		return domain.WorkshopBooking{}, fmt.Errorf("%s:%w", op, err)
	}

	s.metrics.BookingEvent(ledger, "cancelled")
	s.logger.Info("workshop booking cancelled", "booking_id", id, "workshop_id", b.WorkshopID)

	return b, nil
}

func (s *Service) transition(
	ctx context.Context,
	id string,
	next domain.BookingStatus,
) (domain.WorkshopBooking, bool, error) {
	var (
		out     domain.WorkshopBooking
		changed bool
	)

	err := s.uow.Do(ctx, []string{documentrepo.WorkshopBookingsDoc}, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		bookings, err := s.store.WorkshopBookings().Load(ctx)
		if err != nil {
			return err
		}

		i := slices.IndexFunc(bookings, func(b domain.WorkshopBooking) bool { return b.ID == id })
		if i < 0 {
			return ErrBookingNotFound
		}

		cur := bookings[i].Status
		switch {
		case cur == domain.StatusCancelled && next == domain.StatusCancelled:
			return domain.ErrAlreadyCancelled
		case !cur.CanTransitionTo(next):
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, cur, next)
		case cur == next:
			out = bookings[i]
			return nil
		}

		bookings[i].Status = next
		if err := s.store.WorkshopBookings().Save(ctx, bookings); err != nil {
			return err
		}

		out = bookings[i]
		changed = true
		after(s.feed.Hook(domain.ChangeWorkshop, out.WorkshopID))
		return nil
	})
	if err != nil {
		return domain.WorkshopBooking{}, false, err
	}

	return out, changed, nil
}

// ListBookings returns all workshop bookings, newest first, with the
// workshop's title and schedule.
func (s *Service) ListBookings(ctx context.Context) ([]EnrichedBooking, error) {
	const op = "service.workshops.ListBookings"

	var (
		workshops []domain.Workshop
		bookings  []domain.WorkshopBooking
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		workshops, err = s.store.Workshops().Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = s.store.WorkshopBookings().Load(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	byID := make(map[string]domain.Workshop, len(workshops))
	for _, w := range workshops {
		byID[w.ID] = w
	}

	out := make([]EnrichedBooking, 0, len(bookings))
	for _, b := range bookings {
		e := EnrichedBooking{WorkshopBooking: b, WorkshopTitle: unknownTitle}
		if w, ok := byID[b.WorkshopID]; ok {
			e.WorkshopTitle = w.Title
			e.WorkshopDate = w.Date
			e.WorkshopTime = w.Time
			e.WorkshopPrice = w.Price
		}
		out = append(out, e)
	}

	slices.SortStableFunc(out, func(a, b EnrichedBooking) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})

	return out, nil
}

func (s *Service) newBooking(in BookInput) (domain.WorkshopBooking, error) {
	b := domain.WorkshopBooking{
		ID:           domain.NewID("wb"),
		WorkshopID:   strings.TrimSpace(in.WorkshopID),
		Name:         strings.TrimSpace(in.Name),
		Email:        domain.NormalizeEmail(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Participants: in.Participants,
		Notes:        strings.TrimSpace(in.Notes),
		Status:       domain.StatusPending,
		CreatedAt:    s.now().UTC(),
	}

	switch {
	case b.WorkshopID == "":
		return domain.WorkshopBooking{}, fmt.Errorf("%w: workshopId is required", ErrInvalidInput)
	case b.Name == "":
		return domain.WorkshopBooking{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !domain.ValidEmail(b.Email):
		return domain.WorkshopBooking{}, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	case b.Participants < 1:
		return domain.WorkshopBooking{}, domain.ErrInvalidParticipants
	}

	return b, nil
}

func (s *Service) deliver(ctx context.Context, what string, send func(ctx context.Context) error) notify.Outcome {
	if s.notifier == nil {
		return notify.Outcome{Error: notify.ErrNotConfigured.Error()}
	}
	return notify.Deliver(ctx, s.logger, s.metrics, what, send)
}

func validateWorkshop(w domain.Workshop) error {
	switch {
	case w.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case !domain.ValidDate(w.Date):
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	case !domain.ValidClock(w.Time):
		return fmt.Errorf("%w: time must be HH:MM", ErrInvalidInput)
	case w.MaxParticipants < 1:
		return fmt.Errorf("%w: maxParticipants must be at least 1", ErrInvalidInput)
	}
	return nil
}

func applyUpdate(w *domain.Workshop, u domain.WorkshopUpdate) {
	if v, ok := u.Title.Get(); ok {
		w.Title = strings.TrimSpace(v)
	}
	if v, ok := u.Description.Get(); ok {
		w.Description = strings.TrimSpace(v)
	}
	if v, ok := u.DetailedDescription.Get(); ok {
		w.DetailedDescription = strings.TrimSpace(v)
	}
	if v, ok := u.Date.Get(); ok {
		w.Date = v
	}
	if v, ok := u.Time.Get(); ok {
		w.Time = v
	}
	if v, ok := u.Price.Get(); ok {
		w.Price = strings.TrimSpace(v)
	}
	if v, ok := u.MaxParticipants.Get(); ok {
		w.MaxParticipants = v
	}
	if v, ok := u.Active.Get(); ok {
		w.Active = v
	}
	if v, ok := u.ImageFilename.Get(); ok {
		w.ImageFilename = strings.TrimSpace(v)
	}
}

func sortWorkshops(ws []domain.Workshop) {
	slices.SortStableFunc(ws, func(a, b domain.Workshop) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
}
