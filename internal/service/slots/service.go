package slots

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/kirinyoku/atelier/internal/domain"
	documentrepo "github.com/kirinyoku/atelier/internal/repository/document"
	redisrepo "github.com/kirinyoku/atelier/internal/repository/redis"
	"github.com/kirinyoku/atelier/internal/service/changefeed"
	"github.com/kirinyoku/atelier/internal/uow"
)

const publicCacheTTL = time.Minute

type CreateInput struct {
	Date          string
	Time          string
	EndTime       string
	MaxCapacity   int
	InitialBooked int
	EventType     domain.EventType
	EventDuration float64
}

type Service struct {
	store  *documentrepo.Store
	uow    *uow.UoW
	cache  *redisrepo.Cache
	feed   *changefeed.Feed
	logger *slog.Logger
	now    func() time.Time
}

func New(
	store *documentrepo.Store,
	u *uow.UoW,
	cache *redisrepo.Cache,
	feed *changefeed.Feed,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:  store,
		uow:    u,
		cache:  cache,
		feed:   feed,
		logger: logger,
		now:    time.Now,
	}
}

// List returns all slots ordered by date and start time.
func (s *Service) List(ctx context.Context) ([]domain.TimeSlot, error) {
	const op = "service.slots.List"

	slots, err := s.store.Slots().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	sortSlots(slots)

	return slots, nil
}

// ListUpcoming returns slots on or after the given day (YYYY-MM-DD). The
// full ordered list is cached; the cut-off is applied per call.
func (s *Service) ListUpcoming(ctx context.Context, fromDate string) ([]domain.TimeSlot, error) {
	const op = "service.slots.ListUpcoming"

	all, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyPublicSlots(), publicCacheTTL, s.List)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out := make([]domain.TimeSlot, 0, len(all))
	for _, slot := range all {
		if slot.Date >= fromDate {
			out = append(out, slot)
		}
	}

	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.TimeSlot, error) {
	const op = "service.slots.Get"

	slots, err := s.store.Slots().Load(ctx)
	if err != nil {
		return domain.TimeSlot{}, fmt.Errorf("%s:%w", op, err)
	}

	i := slices.IndexFunc(slots, func(t domain.TimeSlot) bool { return t.ID == id })
	if i < 0 {
		return domain.TimeSlot{}, fmt.Errorf("%s:%w", op, ErrSlotNotFound)
	}

	return slots[i], nil
}

// Create adds a slot with available = maxCapacity - initialBooked.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.TimeSlot, error) {
	const op = "service.slots.Create"

	if err := validateSchedule(in.Date, in.Time, in.EndTime); err != nil {
		return domain.TimeSlot{}, fmt.Errorf("%s:%w", op, err)
	}
	if in.MaxCapacity <= 0 || in.InitialBooked < 0 || in.InitialBooked > in.MaxCapacity {
		return domain.TimeSlot{}, fmt.Errorf("%s:%w", op, domain.ErrInvalidCapacity)
	}
	eventType, err := normalizeEventType(in.EventType)
	if err != nil {
		return domain.TimeSlot{}, fmt.Errorf("%s:%w", op, err)
	}
	if in.EventDuration < 0 {
		return domain.TimeSlot{}, fmt.Errorf("%s:%w: negative event duration", op, ErrInvalidInput)
	}

	slot := domain.TimeSlot{
		ID:            domain.NewID("slot"),
		Date:          in.Date,
		Time:          in.Time,
		EndTime:       in.EndTime,
		MaxCapacity:   in.MaxCapacity,
		Available:     in.MaxCapacity - in.InitialBooked,
		EventType:     eventType,
		EventDuration: in.EventDuration,
		CreatedAt:     s.now().UTC(),
	}

	err = s.uow.Do(ctx, []string{documentrepo.SlotsDoc}, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		slots, err := s.store.Slots().Load(ctx)
		if err != nil {
			return err
		}

		if err := s.store.Slots().Save(ctx, append(slots, slot)); err != nil {
			return err
		}

		after(s.feed.Hook(domain.ChangeSlot, slot.ID))
		return nil
	})
	if err != nil {
		return domain.TimeSlot{}, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("slot created", "slot_id", slot.ID, "date", slot.Date, "time", slot.Time, "max_capacity", slot.MaxCapacity)

	return slot, nil
}

// Update applies the field update set. Capacity changes keep the seats that
// are already booked; see domain.TimeSlot.ApplyUpdate.
func (s *Service) Update(ctx context.Context, id string, u domain.SlotUpdate) (domain.TimeSlot, error) {
	const op = "service.slots.Update"

	if err := validateUpdate(u); err != nil {
		return domain.TimeSlot{}, fmt.Errorf("%s:%w", op, err)
	}

	var updated domain.TimeSlot

	err := s.uow.Do(ctx, []string{documentrepo.SlotsDoc}, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		slots, err := s.store.Slots().Load(ctx)
		if err != nil {
			return err
		}

		i := slices.IndexFunc(slots, func(t domain.TimeSlot) bool { return t.ID == id })
		if i < 0 {
			return ErrSlotNotFound
		}

		if err := slots[i].ApplyUpdate(u); err != nil {
			return err
		}

		if err := s.store.Slots().Save(ctx, slots); err != nil {
			return err
		}

		updated = slots[i]
		after(s.feed.Hook(domain.ChangeSlot, id))
		return nil
	})
	if err != nil {
		return domain.TimeSlot{}, fmt.Errorf("%s:%w", op, err)
	}

	return updated, nil
}

// Delete removes the slot. Bookings referencing it are left in place.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "service.slots.Delete"

	err := s.uow.Do(ctx, []string{documentrepo.SlotsDoc}, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		slots, err := s.store.Slots().Load(ctx)
		if err != nil {
			return err
		}

		kept := slices.DeleteFunc(slots, func(t domain.TimeSlot) bool { return t.ID == id })
		if len(kept) == len(slots) {
			return ErrSlotNotFound
		}

		if err := s.store.Slots().Save(ctx, kept); err != nil {
			return err
		}

		after(s.feed.Hook(domain.ChangeSlot, id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("slot deleted", "slot_id", id)

	return nil
}

// Recompute rederives available from the booking ledger, repairing any drift
// in the stored counter.
func (s *Service) Recompute(ctx context.Context, id string) (domain.TimeSlot, error) {
	const op = "service.slots.Recompute"

	var slot domain.TimeSlot

	err := s.uow.Do(ctx, []string{documentrepo.SlotsDoc, documentrepo.BookingsDoc}, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		slots, err := s.store.Slots().Load(ctx)
		if err != nil {
			return err
		}

		i := slices.IndexFunc(slots, func(t domain.TimeSlot) bool { return t.ID == id })
		if i < 0 {
			return ErrSlotNotFound
		}

		bookings, err := s.store.Bookings().Load(ctx)
		if err != nil {
			return err
		}

		taken := domain.ActiveParticipants(bookings, id)
		available := slots[i].MaxCapacity - taken
		if available < 0 {
			s.logger.Warn("slot is overbooked", "slot_id", id, "max_capacity", slots[i].MaxCapacity, "booked", taken)
			available = 0
		}

		if available != slots[i].Available {
			s.logger.Info("slot availability corrected", "slot_id", id, "from", slots[i].Available, "to", available)
			slots[i].Available = available
			if err := s.store.Slots().Save(ctx, slots); err != nil {
				return err
			}
			after(s.feed.Hook(domain.ChangeSlot, id))
		}

		slot = slots[i]
		return nil
	})
	if err != nil {
		return domain.TimeSlot{}, fmt.Errorf("%s:%w", op, err)
	}

	return slot, nil
}

func sortSlots(slots []domain.TimeSlot) {
	slices.SortStableFunc(slots, func(a, b domain.TimeSlot) int {
		if a.Date != b.Date {
			if a.Date < b.Date {
				return -1
			}
			return 1
		}
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
}

func validateSchedule(date, start, end string) error {
	if !domain.ValidDate(date) {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if !domain.ValidClock(start) {
		return fmt.Errorf("%w: time must be HH:MM", ErrInvalidInput)
	}
	if end != "" && !domain.ValidClock(end) {
		return fmt.Errorf("%w: endTime must be HH:MM", ErrInvalidInput)
	}
	return nil
}

func validateUpdate(u domain.SlotUpdate) error {
	if v, ok := u.Date.Get(); ok && !domain.ValidDate(v) {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if v, ok := u.Time.Get(); ok && !domain.ValidClock(v) {
		return fmt.Errorf("%w: time must be HH:MM", ErrInvalidInput)
	}
	if v, ok := u.EndTime.Get(); ok && v != "" && !domain.ValidClock(v) {
		return fmt.Errorf("%w: endTime must be HH:MM", ErrInvalidInput)
	}
	if v, ok := u.EventType.Get(); ok {
		if _, err := normalizeEventType(v); err != nil {
			return err
		}
	}
	if v, ok := u.EventDuration.Get(); ok && v < 0 {
		return fmt.Errorf("%w: negative event duration", ErrInvalidInput)
	}
	return nil
}

func normalizeEventType(t domain.EventType) (domain.EventType, error) {
	if t == "" {
		return domain.EventNormal, nil
	}
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, t)
	}
	return t, nil
}
