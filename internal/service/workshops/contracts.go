package workshops

import (
	"context"

	"github.com/kirinyoku/atelier/internal/domain"
)

type Notifier interface {
	WorkshopBookingCreated(ctx context.Context, b domain.WorkshopBooking, w domain.Workshop) error
	WorkshopBookingConfirmed(ctx context.Context, b domain.WorkshopBooking, w domain.Workshop) error
}
