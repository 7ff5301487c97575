package bookings

import (
	"context"

	"github.com/kirinyoku/atelier/internal/domain"
)

type Notifier interface {
	BookingCreated(ctx context.Context, b domain.Booking, slot domain.TimeSlot) error
	BookingConfirmed(ctx context.Context, b domain.Booking, slot domain.TimeSlot) error
}
