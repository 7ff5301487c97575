package domain

import "errors"

var (
	ErrInvalidCapacity      = errors.New("invalid capacity")
	ErrCapacityBelowBooked  = errors.New("capacity below already booked seats")
	ErrInvalidParticipants  = errors.New("participants must be at least 1")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrAlreadyCancelled     = errors.New("booking already cancelled")
)

// SlotUpdate is the explicit field update set accepted by the slot registry.
type SlotUpdate struct {
	Date          Optional[string]
	Time          Optional[string]
	EndTime       Optional[string]
	MaxCapacity   Optional[int]
	InitialBooked Optional[int]
	EventType     Optional[EventType]
	EventDuration Optional[float64]
}

// Booked is the number of seats held by non-cancelled bookings.
func (s TimeSlot) Booked() int {
	return s.MaxCapacity - s.Available
}

// Reserve takes n seats from the slot.
func (s *TimeSlot) Reserve(n int) error {
	if n < 1 {
		return ErrInvalidParticipants
	}
	if s.Available < n {
		return ErrInsufficientCapacity
	}
	s.Available -= n
	return nil
}

// Release gives n seats back, never exceeding MaxCapacity.
func (s *TimeSlot) Release(n int) {
	s.Available += n
	if s.Available > s.MaxCapacity {
		s.Available = s.MaxCapacity
	}
}

// Adjust applies a participant delta: positive takes seats, negative returns them.
func (s *TimeSlot) Adjust(delta int) error {
	switch {
	case delta > 0:
		if s.Available-delta < 0 {
			return ErrInsufficientCapacity
		}
		s.Available -= delta
	case delta < 0:
		s.Release(-delta)
	}
	return nil
}

// ApplyUpdate validates u against the slot and applies it. The slot is left
// untouched when an error is returned.
func (s *TimeSlot) ApplyUpdate(u SlotUpdate) error {
	next := *s

	if v, ok := u.Date.Get(); ok {
		next.Date = v
	}
	if v, ok := u.Time.Get(); ok {
		next.Time = v
	}
	if v, ok := u.EndTime.Get(); ok {
		next.EndTime = v
	}
	if v, ok := u.EventType.Get(); ok {
		if v == "" {
			v = EventNormal
		}
		next.EventType = v
	}
	if v, ok := u.EventDuration.Get(); ok {
		next.EventDuration = v
	}

	newMax, maxSet := u.MaxCapacity.Get()
	booked, bookedSet := u.InitialBooked.Get()

	switch {
	case maxSet && newMax != s.MaxCapacity:
		if newMax <= 0 {
			return ErrInvalidCapacity
		}
		if !bookedSet {
			booked = s.Booked()
		}
		if booked < 0 {
			return ErrInvalidCapacity
		}
		if newMax < booked {
			return ErrCapacityBelowBooked
		}
		next.MaxCapacity = newMax
		next.Available = newMax - booked
	case bookedSet:
		if booked < 0 {
			return ErrInvalidCapacity
		}
		if booked > next.MaxCapacity {
			return ErrCapacityBelowBooked
		}
		next.Available = next.MaxCapacity - booked
	}

	*s = next
	return nil
}

// ActiveParticipants sums participants of non-cancelled bookings for slotID.
func ActiveParticipants(bookings []Booking, slotID string) int {
	total := 0
	for _, b := range bookings {
		if b.SlotID == slotID && b.Status.IsActive() {
			total += b.Participants
		}
	}
	return total
}

// RemainingSpots derives the free capacity of a workshop from its bookings.
func RemainingSpots(w Workshop, bookings []WorkshopBooking) int {
	taken := 0
	for _, b := range bookings {
		if b.WorkshopID == w.ID && b.Status.IsActive() {
			taken += b.Participants
		}
	}
	remaining := w.MaxParticipants - taken
	if remaining < 0 {
		return 0
	}
	return remaining
}
