package workshops

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kirinyoku/atelier/internal/docstore"
	"github.com/kirinyoku/atelier/internal/domain"
	documentrepo "github.com/kirinyoku/atelier/internal/repository/document"
	"github.com/kirinyoku/atelier/internal/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu        sync.Mutex
	created   int
	confirmed []domain.Workshop
}

func (f *fakeNotifier) WorkshopBookingCreated(context.Context, domain.WorkshopBooking, domain.Workshop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return nil
}

func (f *fakeNotifier) WorkshopBookingConfirmed(_ context.Context, _ domain.WorkshopBooking, w domain.Workshop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, w)
	return nil
}

func newTestService(t *testing.T) (*Service, *documentrepo.Store, *fakeNotifier) {
	t.Helper()

	store := documentrepo.NewStore(docstore.NewLocal(t.TempDir()))
	n := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(store, uow.NewUoW(nil), nil, nil, n, nil, logger), store, n
}

func createWorkshop(t *testing.T, svc *Service, max int, active bool) domain.Workshop {
	t.Helper()

	w, err := svc.Create(context.Background(), CreateInput{
		Title:           " Raku-Brand ",
		Description:     "Glasieren und brennen",
		Date:            "2025-04-12",
		Time:            "10:00",
		Price:           "65 €",
		MaxParticipants: max,
		Active:          active,
	})
	require.NoError(t, err)

	return w
}

func book(svc *Service, workshopID string, n int) (Result, error) {
	return svc.Book(context.Background(), BookInput{
		WorkshopID:   workshopID,
		Name:         " Jonas ",
		Email:        " JONAS@example.org",
		Participants: n,
	})
}

func TestCreateValidates(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateInput{Title: "x", Date: "2025-04-12", Time: "10:00"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(context.Background(), CreateInput{Title: "x", Date: "12.04.2025", Time: "10:00", MaxParticipants: 2})
	assert.ErrorIs(t, err, ErrInvalidInput)

	w := createWorkshop(t, svc, 6, true)
	assert.Equal(t, "Raku-Brand", w.Title)
}

func TestRemainingIsDerivedFromBookings(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	w := createWorkshop(t, svc, 8, true)

	first, err := book(svc, w.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "jonas@example.org", first.Booking.Email)
	assert.Equal(t, "Jonas", first.Booking.Name)
	assert.Equal(t, domain.StatusPending, first.Booking.Status)

	second, err := book(svc, w.ID, 2)
	require.NoError(t, err)

	left, err := svc.Remaining(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, left)

	_, err = svc.CancelBooking(ctx, second.Booking.ID)
	require.NoError(t, err)

	left, err = svc.Remaining(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, left)

	bookings, err := store.WorkshopBookings().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, w.MaxParticipants-domain.RemainingSpots(w, bookings), 3)
}

func TestBookRejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	open := createWorkshop(t, svc, 4, true)
	closed := createWorkshop(t, svc, 4, false)

	_, err := book(svc, "ws_missing", 1)
	assert.ErrorIs(t, err, ErrWorkshopNotFound)

	_, err = book(svc, closed.ID, 1)
	assert.ErrorIs(t, err, ErrWorkshopInactive)

	_, err = book(svc, open.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidParticipants)

	_, err = book(svc, open.ID, 3)
	require.NoError(t, err)

	_, err = book(svc, open.ID, 2)
	require.ErrorIs(t, err, ErrNotEnoughSpots)

	var spots *NotEnoughSpotsError
	require.True(t, errors.As(err, &spots))
	assert.Equal(t, 1, spots.Available)

	_, err = svc.Book(context.Background(), BookInput{WorkshopID: open.ID, Name: "A", Email: "a@b", Participants: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConfirmAndCancelTransitions(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()
	w := createWorkshop(t, svc, 4, true)

	res, err := book(svc, w.ID, 1)
	require.NoError(t, err)
	assert.True(t, res.NotificationSent)
	id := res.Booking.ID

	confirmed, err := svc.ConfirmBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Booking.Status)
	assert.True(t, confirmed.NotificationSent)

	again, err := svc.ConfirmBooking(ctx, id)
	require.NoError(t, err)
	assert.False(t, again.NotificationSent)
	require.Len(t, n.confirmed, 1)
	assert.Equal(t, w.ID, n.confirmed[0].ID)

	_, err = svc.CancelBooking(ctx, id)
	require.NoError(t, err)

	_, err = svc.CancelBooking(ctx, id)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)

	_, err = svc.ConfirmBooking(ctx, id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.ConfirmBooking(ctx, "wb_missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestListPublicAndUpdate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	w := createWorkshop(t, svc, 5, true)
	createWorkshop(t, svc, 5, false)

	_, err := book(svc, w.ID, 2)
	require.NoError(t, err)

	public, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, 3, public[0].RemainingSpots)

	updated, err := svc.Update(ctx, w.ID, domain.WorkshopUpdate{
		MaxParticipants: domain.Some(1),
		Price:           domain.Some("70 €"),
	})
	require.NoError(t, err)
	assert.Equal(t, "70 €", updated.Price)

	left, err := svc.Remaining(ctx, w.ID)
	require.NoError(t, err)
	assert.Zero(t, left)

	_, err = svc.Update(ctx, w.ID, domain.WorkshopUpdate{MaxParticipants: domain.Some(0)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListBookingsMarksDeletedWorkshops(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	w := createWorkshop(t, svc, 5, true)

	_, err := book(svc, w.ID, 1)
	require.NoError(t, err)

	list, err := svc.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Raku-Brand", list[0].WorkshopTitle)
	assert.Equal(t, "65 €", list[0].WorkshopPrice)

	require.NoError(t, svc.Delete(ctx, w.ID))
	assert.ErrorIs(t, svc.Delete(ctx, w.ID), ErrWorkshopNotFound)

	list, err = svc.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "unknown", list[0].WorkshopTitle)
}

func TestConcurrentBookingsRespectCapacity(t *testing.T) {
	svc, _, _ := newTestService(t)
	w := createWorkshop(t, svc, 6, true)

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := book(svc, w.ID, 1); err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 6, accepted.Load())

	left, err := svc.Remaining(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Zero(t, left)
}
