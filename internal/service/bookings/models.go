package bookings

import "github.com/kirinyoku/atelier/internal/domain"

type AddInput struct {
	SlotID       string
	Name         string
	Email        string
	Phone        string
	Participants int
	Notes        string
}

// Result carries the booking plus the side-channel notification outcome.
type Result struct {
	Booking           domain.Booking
	NotificationSent  bool
	NotificationError string
}

// Enriched is a booking joined with its slot for the admin listing. Slot
// fields are empty when the slot has been deleted.
type Enriched struct {
	domain.Booking
	SlotDate        string `json:"slotDate,omitempty"`
	SlotTime        string `json:"slotTime,omitempty"`
	SlotEndTime     string `json:"slotEndTime,omitempty"`
	SlotMaxCapacity *int   `json:"slotMaxCapacity,omitempty"`
	SlotAvailable   *int   `json:"slotAvailable,omitempty"`
}
