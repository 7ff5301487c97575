package bookings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirinyoku/atelier/internal/docstore"
	"github.com/kirinyoku/atelier/internal/domain"
	documentrepo "github.com/kirinyoku/atelier/internal/repository/document"
	"github.com/kirinyoku/atelier/internal/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu        sync.Mutex
	created   []string
	confirmed []string
	err       error
}

func (f *fakeNotifier) BookingCreated(_ context.Context, b domain.Booking, _ domain.TimeSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, b.ID)
	return f.err
}

func (f *fakeNotifier) BookingConfirmed(_ context.Context, b domain.Booking, _ domain.TimeSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, b.ID)
	return f.err
}

func newTestService(t *testing.T, slots ...domain.TimeSlot) (*Service, *documentrepo.Store, *fakeNotifier) {
	t.Helper()

	store := documentrepo.NewStore(docstore.NewLocal(t.TempDir()))
	if len(slots) > 0 {
		require.NoError(t, store.Slots().Save(context.Background(), slots))
	}

	n := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(store, uow.NewUoW(nil), nil, n, nil, logger), store, n
}

func slotWith(max, available int) domain.TimeSlot {
	return domain.TimeSlot{
		ID:          "slot_1",
		Date:        "2025-03-01",
		Time:        "14:00",
		MaxCapacity: max,
		Available:   available,
		EventType:   domain.EventNormal,
	}
}

func loadSlot(t *testing.T, store *documentrepo.Store) domain.TimeSlot {
	t.Helper()

	slots, err := store.Slots().Load(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 1)

	return slots[0]
}

func addInput(n int) AddInput {
	return AddInput{
		SlotID:       "slot_1",
		Name:         "  Anna  ",
		Email:        " Anna@Example.COM ",
		Participants: n,
	}
}

func TestBookingLifecycle(t *testing.T) {
	svc, store, n := newTestService(t, slotWith(10, 10))
	ctx := context.Background()

	res, err := svc.Add(ctx, addInput(4))
	require.NoError(t, err)

	b := res.Booking
	assert.Equal(t, domain.StatusPending, b.Status)
	assert.Equal(t, "Anna", b.Name)
	assert.Equal(t, "anna@example.com", b.Email)
	assert.True(t, res.NotificationSent)
	assert.Equal(t, 6, loadSlot(t, store).Available)

	confirmed, err := svc.Confirm(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Booking.Status)
	assert.True(t, confirmed.NotificationSent)
	assert.Equal(t, 6, loadSlot(t, store).Available, "confirming does not touch capacity")

	cancelled, err := svc.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 10, loadSlot(t, store).Available)

	_, err = svc.Cancel(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	assert.Equal(t, 10, loadSlot(t, store).Available, "seats are credited back once")

	assert.Equal(t, []string{b.ID}, n.created)
	assert.Equal(t, []string{b.ID}, n.confirmed)
}

func TestAddRejections(t *testing.T) {
	tests := []struct {
		name string
		in   AddInput
		want error
	}{
		{"insufficient capacity", addInput(5), domain.ErrInsufficientCapacity},
		{"zero participants", addInput(0), domain.ErrInvalidParticipants},
		{"unknown slot", AddInput{SlotID: "slot_x", Name: "A", Email: "a@b.de", Participants: 1}, ErrSlotNotFound},
		{"bad email", AddInput{SlotID: "slot_1", Name: "A", Email: "nope", Participants: 1}, ErrInvalidInput},
		{"blank name", AddInput{SlotID: "slot_1", Name: "  ", Email: "a@b.de", Participants: 1}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t, slotWith(10, 4))

			_, err := svc.Add(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 4, loadSlot(t, store).Available)

			bookings, err := store.Bookings().Load(context.Background())
			require.NoError(t, err)
			assert.Empty(t, bookings)
		})
	}
}

func TestAddSucceedsWhenNotificationFails(t *testing.T) {
	svc, store, n := newTestService(t, slotWith(4, 4))
	n.err = errors.New("smtp: connection refused")

	res, err := svc.Add(context.Background(), addInput(4))
	require.NoError(t, err)

	assert.False(t, res.NotificationSent)
	assert.Contains(t, res.NotificationError, "connection refused")
	assert.Equal(t, 0, loadSlot(t, store).Available)
}

func TestUpdateParticipantsAdjustsSlot(t *testing.T) {
	svc, store, _ := newTestService(t, slotWith(10, 10))
	ctx := context.Background()

	res, err := svc.Add(ctx, addInput(2))
	require.NoError(t, err)
	id := res.Booking.ID

	_, err = svc.Update(ctx, id, domain.BookingUpdate{Participants: domain.Some(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, loadSlot(t, store).Available)

	_, err = svc.Update(ctx, id, domain.BookingUpdate{Participants: domain.Some(11)})
	assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
	assert.Equal(t, 5, loadSlot(t, store).Available)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Participants)

	upd, err := svc.Update(ctx, id, domain.BookingUpdate{
		Participants: domain.Some(1),
		Phone:        domain.Some(" 0176 123 "),
	})
	require.NoError(t, err)
	assert.Equal(t, "0176 123", upd.Booking.Phone)
	assert.Equal(t, 9, loadSlot(t, store).Available)
}

func TestUpdateStatusRules(t *testing.T) {
	svc, _, n := newTestService(t, slotWith(10, 10))
	ctx := context.Background()

	res, err := svc.Add(ctx, addInput(1))
	require.NoError(t, err)
	id := res.Booking.ID

	_, err = svc.Update(ctx, id, domain.BookingUpdate{Status: domain.Some(domain.StatusCancelled)})
	assert.ErrorIs(t, err, ErrUseCancelOperation)

	_, err = svc.Update(ctx, id, domain.BookingUpdate{Status: domain.Some(domain.BookingStatus("archived"))})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Confirm(ctx, id)
	require.NoError(t, err)

	again, err := svc.Confirm(ctx, id)
	require.NoError(t, err)
	assert.False(t, again.NotificationSent, "no second confirmation email")
	assert.Len(t, n.confirmed, 1)

	_, err = svc.Update(ctx, id, domain.BookingUpdate{Status: domain.Some(domain.StatusPending)})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.Cancel(ctx, id)
	require.NoError(t, err)

	_, err = svc.Update(ctx, id, domain.BookingUpdate{Name: domain.Some("Bea")})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.Update(ctx, "booking_missing", domain.BookingUpdate{Name: domain.Some("Bea")})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelWithDeletedSlot(t *testing.T) {
	svc, store, _ := newTestService(t, slotWith(10, 10))
	ctx := context.Background()

	res, err := svc.Add(ctx, addInput(3))
	require.NoError(t, err)
	require.NoError(t, store.Slots().Save(ctx, nil))

	cancelled, err := svc.Cancel(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, "booking_missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestListEnrichedNewestFirst(t *testing.T) {
	svc, store, _ := newTestService(t, slotWith(10, 10))
	ctx := context.Background()

	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := svc.Add(ctx, addInput(1))
	require.NoError(t, err)
	second, err := svc.Add(ctx, addInput(2))
	require.NoError(t, err)

	bookings, err := store.Bookings().Load(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Bookings().Save(ctx, append(bookings, domain.Booking{
		ID:           "booking_orphan",
		SlotID:       "slot_gone",
		Participants: 1,
		Status:       domain.StatusPending,
		CreatedAt:    base,
	})))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, second.Booking.ID, list[0].ID)
	assert.Equal(t, first.Booking.ID, list[1].ID)
	assert.Equal(t, "booking_orphan", list[2].ID)

	assert.Equal(t, "2025-03-01", list[0].SlotDate)
	require.NotNil(t, list[0].SlotAvailable)
	assert.Equal(t, 7, *list[0].SlotAvailable)
	assert.Empty(t, list[2].SlotDate)
	assert.Nil(t, list[2].SlotAvailable)
}

func TestConcurrentAddsNeverOverbook(t *testing.T) {
	svc, store, _ := newTestService(t, slotWith(10, 10))
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Add(ctx, addInput(1)); err == nil {
				accepted.Add(1)
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, accepted.Load())
	assert.Equal(t, 0, loadSlot(t, store).Available)

	bookings, err := store.Bookings().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, domain.ActiveParticipants(bookings, "slot_1"))
}

// failingPuts fails every write of one document while fail is set.
type failingPuts struct {
	docstore.Store
	name string
	fail atomic.Bool
}

func (f *failingPuts) Put(ctx context.Context, name string, data []byte) error {
	if name == f.name && f.fail.Load() {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, name, data)
}

func TestFailedSlotWriteLeavesLedgerUntouched(t *testing.T) {
	ctx := context.Background()

	docs := &failingPuts{Store: docstore.NewLocal(t.TempDir()), name: documentrepo.SlotsDoc}
	store := documentrepo.NewStore(docs)
	require.NoError(t, store.Slots().Save(ctx, []domain.TimeSlot{slotWith(10, 10)}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(store, uow.NewUoW(nil), nil, &fakeNotifier{}, nil, logger)

	docs.fail.Store(true)
	_, err := svc.Add(ctx, addInput(4))
	require.Error(t, err)

	bookings, err := store.Bookings().Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, bookings)
	assert.Equal(t, 10, loadSlot(t, store).Available)

	docs.fail.Store(false)
	res, err := svc.Add(ctx, addInput(4))
	require.NoError(t, err)
	require.Equal(t, 6, loadSlot(t, store).Available)

	docs.fail.Store(true)
	_, err = svc.Update(ctx, res.Booking.ID, domain.BookingUpdate{Participants: domain.Some(6)})
	require.Error(t, err)

	got, err := svc.Get(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Participants)

	_, err = svc.Cancel(ctx, res.Booking.ID)
	require.Error(t, err)

	got, err = svc.Get(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	docs.fail.Store(false)
	cancelled, err := svc.Cancel(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 10, loadSlot(t, store).Available)
}
