package bookings

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/kirinyoku/atelier/internal/domain"
	"github.com/kirinyoku/atelier/internal/metrics"
	"github.com/kirinyoku/atelier/internal/notify"
	documentrepo "github.com/kirinyoku/atelier/internal/repository/document"
	"github.com/kirinyoku/atelier/internal/service/changefeed"
	"github.com/kirinyoku/atelier/internal/uow"
)

const ledger = "slot"

// ledgerDocs are locked together by every mutation that touches capacity.
var ledgerDocs = []string{documentrepo.SlotsDoc, documentrepo.BookingsDoc}

// Service is the booking ledger for time slots. It keeps each slot's
// available counter in step with the bookings that reference it.
type Service struct {
	store    *documentrepo.Store
	uow      *uow.UoW
	feed     *changefeed.Feed
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func New(
	store *documentrepo.Store,
	u *uow.UoW,
	feed *changefeed.Feed,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    store,
		uow:      u,
		feed:     feed,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Add books participants seats on a slot.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: slot id, contact details and participant count.
//
// Returns:
//   - Result: the pending booking and the notification outcome.
//   - error: ErrSlotNotFound if the slot does not exist.
//   - error: domain.ErrInsufficientCapacity if fewer seats are available.
//   - error: domain.ErrInvalidParticipants or ErrInvalidInput for bad input.
func (s *Service) Add(ctx context.Context, in AddInput) (Result, error) {
	const op = "service.bookings.Add"

	b, err := s.newBooking(in)
	if err != nil {
		s.metrics.BookingEvent(ledger, "rejected")
		return Result{}, fmt.Errorf("%s:%w", op, err)
	}

	var slot domain.TimeSlot

	err = s.uow.Do(ctx, ledgerDocs, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		slots, err := s.store.Slots().Load(ctx)
		if err != nil {
			return err
		}

		i := slices.IndexFunc(slots, func(t domain.TimeSlot) bool { return t.ID == b.SlotID })
		if i < 0 {
			return ErrSlotNotFound
		}

		if err := slots[i].Reserve(b.Participants); err != nil {
			return err
		}

		bookings, err := s.store.Bookings().Load(ctx)
		if err != nil {
			return err
		}

		if err := s.saveLedger(ctx, bookings, append(slices.Clip(bookings), b), slots); err != nil {
			return err
		}

		slot = slots[i]
		after(s.feed.Hook(domain.ChangeSlot, slot.ID))
		return nil
	})
	if err != nil {
		s.metrics.BookingEvent(ledger, "rejected")
		return Result{}, fmt.Errorf("%s:%w", op, err)
	}

	s.metrics.BookingEvent(ledger, "created")
	s.logger.Info("booking created",
		"booking_id", b.ID,
		"slot_id", slot.ID,
		"participants", b.Participants,
		"available", slot.Available,
	)

	out := s.deliver(ctx, "booking created", func(ctx context.Context) error {
		return s.notifier.BookingCreated(ctx, b, slot)
	})

	return Result{Booking: b, NotificationSent: out.Sent, NotificationError: out.Error}, nil
}

// Cancel moves a booking to cancelled and returns its seats to the slot.
// A booking is credited back exactly once: cancelling it again fails with
// domain.ErrAlreadyCancelled.
func (s *Service) Cancel(ctx context.Context, id string) (domain.Booking, error) {
	const op = "service.bookings.Cancel"

	var cancelled domain.Booking

	err := s.uow.Do(ctx, ledgerDocs, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		bookings, err := s.store.Bookings().Load(ctx)
		if err != nil {
			return err
		}

		i := slices.IndexFunc(bookings, func(b domain.Booking) bool { return b.ID == id })
		if i < 0 {
			return ErrBookingNotFound
		}
		if bookings[i].Status == domain.StatusCancelled {
			return domain.ErrAlreadyCancelled
		}

		before := slices.Clone(bookings)
		bookings[i].Status = domain.StatusCancelled
		cancelled = bookings[i]

		slots, err := s.store.Slots().Load(ctx)
		if err != nil {
			return err
		}

		j := slices.IndexFunc(slots, func(t domain.TimeSlot) bool { return t.ID == cancelled.SlotID })
		if j < 0 {
			s.logger.Warn("cancelled booking references a missing slot", "booking_id", id, "slot_id", cancelled.SlotID)
			return s.saveLedger(ctx, before, bookings, nil)
		}

		slots[j].Release(cancelled.Participants)
		if err := s.saveLedger(ctx, before, bookings, slots); err != nil {
			return err
		}

		after(s.feed.Hook(domain.ChangeSlot, cancelled.SlotID))
		return nil
	})
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s:%w", op, err)
	}

	s.metrics.BookingEvent(ledger, "cancelled")
	s.logger.Info("booking cancelled", "booking_id", id, "slot_id", cancelled.SlotID, "participants", cancelled.Participants)

	return cancelled, nil
}

// Update applies a partial update. Cancelling is not allowed here; a changed
// participant count is checked against the slot and written to both documents.
func (s *Service) Update(ctx context.Context, id string, u domain.BookingUpdate) (Result, error) {
	const op = "service.bookings.Update"

	if err := validateUpdate(u); err != nil {
		return Result{}, fmt.Errorf("%s:%w", op, err)
	}

	var (
		updated   domain.Booking
		slotState *domain.TimeSlot
		confirmed bool
	)

	err := s.uow.Do(ctx, ledgerDocs, func(
		ctx context.Context,
		after func(uow.AfterCommit),
	) error {
		bookings, err := s.store.Bookings().Load(ctx)
		if err != nil {
			return err
		}

		i := slices.IndexFunc(bookings, func(b domain.Booking) bool { return b.ID == id })
		if i < 0 {
			return ErrBookingNotFound
		}

		before := slices.Clone(bookings)
		b := bookings[i]
		if b.Status == domain.StatusCancelled {
			return fmt.Errorf("%w: booking is cancelled", domain.ErrInvalidTransition)
		}

		if next, ok := u.Status.Get(); ok {
			if !b.Status.CanTransitionTo(next) {
				return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, b.Status, next)
			}
			confirmed = b.Status == domain.StatusPending && next == domain.StatusConfirmed
			b.Status = next
		}

		slots, err := s.store.Slots().Load(ctx)
		if err != nil {
			return err
		}
		j := slices.IndexFunc(slots, func(t domain.TimeSlot) bool { return t.ID == b.SlotID })
		if j >= 0 {
			slotState = &slots[j]
		}

		var changedSlots []domain.TimeSlot
		if n := u.Participants.Or(b.Participants); n != b.Participants {
			if slotState == nil {
				return ErrSlotNotFound
			}
			if err := slotState.Adjust(n - b.Participants); err != nil {
				return err
			}
			changedSlots = slots
			b.Participants = n
			after(s.feed.Hook(domain.ChangeSlot, b.SlotID))
		}

		applyContact(&b, u)

		bookings[i] = b
		if err := s.saveLedger(ctx, before, bookings, changedSlots); err != nil {
			return err
		}

		updated = b
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("%s:%w", op, err)
	}

	res := Result{Booking: updated}
	if !confirmed {
		return res, nil
	}

	s.metrics.BookingEvent(ledger, "confirmed")
	s.logger.Info("booking confirmed", "booking_id", id, "slot_id", updated.SlotID)

	out := s.deliver(ctx, "booking confirmed", func(ctx context.Context) error {
		if slotState == nil {
			return fmt.Errorf("%w: %s", ErrSlotNotFound, updated.SlotID)
		}
		return s.notifier.BookingConfirmed(ctx, updated, *slotState)
	})
	res.NotificationSent = out.Sent
	res.NotificationError = out.Error

	return res, nil
}

// Confirm is Update with status confirmed. Capacity was reserved at creation,
// so only the status changes and the customer is notified.
func (s *Service) Confirm(ctx context.Context, id string) (Result, error) {
	return s.Update(ctx, id, domain.BookingUpdate{Status: domain.Some(domain.StatusConfirmed)})
}

func (s *Service) Get(ctx context.Context, id string) (domain.Booking, error) {
	const op = "service.bookings.Get"

	bookings, err := s.store.Bookings().Load(ctx)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s:%w", op, err)
	}

	i := slices.IndexFunc(bookings, func(b domain.Booking) bool { return b.ID == id })
	if i < 0 {
		return domain.Booking{}, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
	}

	return bookings[i], nil
}

// List returns all bookings, newest first, joined with their slots.
func (s *Service) List(ctx context.Context) ([]Enriched, error) {
	const op = "service.bookings.List"

	bookings, err := s.store.Bookings().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	slots, err := s.store.Slots().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	byID := make(map[string]domain.TimeSlot, len(slots))
	for _, t := range slots {
		byID[t.ID] = t
	}

	out := make([]Enriched, 0, len(bookings))
	for _, b := range bookings {
		e := Enriched{Booking: b}
		if t, ok := byID[b.SlotID]; ok {
			e.SlotDate = t.Date
			e.SlotTime = t.Time
			e.SlotEndTime = t.EndTime
			e.SlotMaxCapacity = &t.MaxCapacity
			e.SlotAvailable = &t.Available
		}
		out = append(out, e)
	}

	slices.SortStableFunc(out, func(a, b Enriched) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})

	return out, nil
}

func (s *Service) newBooking(in AddInput) (domain.Booking, error) {
	b := domain.Booking{
		ID:           domain.NewID("booking"),
		SlotID:       strings.TrimSpace(in.SlotID),
		Name:         strings.TrimSpace(in.Name),
		Email:        domain.NormalizeEmail(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Participants: in.Participants,
		Notes:        strings.TrimSpace(in.Notes),
		Status:       domain.StatusPending,
		CreatedAt:    s.now().UTC(),
	}

	switch {
	case b.SlotID == "":
		return domain.Booking{}, fmt.Errorf("%w: slotId is required", ErrInvalidInput)
	case b.Name == "":
		return domain.Booking{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !domain.ValidEmail(b.Email):
		return domain.Booking{}, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	case b.Participants < 1:
		return domain.Booking{}, domain.ErrInvalidParticipants
	}

	return b, nil
}

func (s *Service) deliver(ctx context.Context, what string, send func(ctx context.Context) error) notify.Outcome {
	if s.notifier == nil {
		return notify.Outcome{Error: notify.ErrNotConfigured.Error()}
	}
	return notify.Deliver(ctx, s.logger, s.metrics, what, send)
}

func validateUpdate(u domain.BookingUpdate) error {
	if st, ok := u.Status.Get(); ok {
		if st == domain.StatusCancelled {
			return ErrUseCancelOperation
		}
		if !st.Valid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, st)
		}
	}
	if n, ok := u.Participants.Get(); ok && n < 1 {
		return domain.ErrInvalidParticipants
	}
	if v, ok := u.Name.Get(); ok && strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	if v, ok := u.Email.Get(); ok && !domain.ValidEmail(domain.NormalizeEmail(v)) {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return nil
}

func applyContact(b *domain.Booking, u domain.BookingUpdate) {
	if v, ok := u.Name.Get(); ok {
		b.Name = strings.TrimSpace(v)
	}
	if v, ok := u.Email.Get(); ok {
		b.Email = domain.NormalizeEmail(v)
	}
	if v, ok := u.Phone.Get(); ok {
		b.Phone = strings.TrimSpace(v)
	}
	if v, ok := u.Notes.Get(); ok {
		b.Notes = strings.TrimSpace(v)
	}
}

// saveLedger writes bookings, then slots when slots is non-nil. If the slots
// write fails the bookings document is put back to before, so the two
// documents never disagree about who holds which seats.
func (s *Service) saveLedger(ctx context.Context, before, bookings []domain.Booking, slots []domain.TimeSlot) error {
	if err := s.store.Bookings().Save(ctx, bookings); err != nil {
		return err
	}
	if slots == nil {
		return nil
	}

	err := s.store.Slots().Save(ctx, slots)
	if err == nil {
		return nil
	}

	if rerr := s.store.Bookings().Save(ctx, before); rerr != nil {
		s.logger.Error("failed to restore document after partial write",
			"document", s.store.Bookings().Name(),
			"cause", err,
			"error", rerr,
		)
		return errors.Join(err, rerr)
	}

	return err
}
