package workshops

import (
	"errors"
	"fmt"
)

var (
	ErrWorkshopNotFound = errors.New("workshop not found")
	ErrBookingNotFound  = errors.New("workshop booking not found")
	ErrWorkshopInactive = errors.New("workshop is not open for booking")
	ErrNotEnoughSpots   = errors.New("not enough spots left")
	ErrInvalidInput     = errors.New("invalid input")
)

// NotEnoughSpotsError reports how many spots were still free when a booking
// was rejected. It matches ErrNotEnoughSpots.
type NotEnoughSpotsError struct {
	Available int
}

func (e *NotEnoughSpotsError) Error() string {
	return fmt.Sprintf("%s: %d available", ErrNotEnoughSpots, e.Available)
}

func (e *NotEnoughSpotsError) Is(target error) bool {
	return target == ErrNotEnoughSpots
}
