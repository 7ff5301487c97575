package bookings

import "errors"

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrSlotNotFound       = errors.New("slot not found")
	ErrUseCancelOperation = errors.New("use the cancel operation to cancel a booking")
	ErrInvalidInput       = errors.New("invalid booking input")
)
