package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type EventType string

const (
	EventNormal           EventType = "normal"
	EventKindergeburtstag EventType = "kindergeburtstag"
	EventStammtisch       EventType = "stammtisch"
)

func (t EventType) Valid() bool {
	switch t {
	case EventNormal, EventKindergeburtstag, EventStammtisch:
		return true
	}
	return false
}

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the status still holds capacity.
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransitionTo reports whether next is reachable from s.
// Staying in the same non-terminal status counts as a valid no-op.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusPending || next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusConfirmed || next == StatusCancelled
	default:
		return false
	}
}

type TimeSlot struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	EndTime       string    `json:"endTime,omitempty"`
	MaxCapacity   int       `json:"maxCapacity"`
	Available     int       `json:"available"`
	EventType     EventType `json:"eventType,omitempty"`
	EventDuration float64   `json:"eventDuration,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Booking struct {
	ID           string        `json:"id"`
	SlotID       string        `json:"slotId"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone,omitempty"`
	Participants int           `json:"participants"`
	Notes        string        `json:"notes,omitempty"`
	Status       BookingStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
}

type Workshop struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	DetailedDescription string    `json:"detailedDescription,omitempty"`
	Date                string    `json:"date"`
	Time                string    `json:"time"`
	Price               string    `json:"price"`
	MaxParticipants     int       `json:"maxParticipants"`
	Active              bool      `json:"active"`
	ImageFilename       string    `json:"imageFilename,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

type WorkshopBooking struct {
	ID           string        `json:"id"`
	WorkshopID   string        `json:"workshopId"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone,omitempty"`
	Participants int           `json:"participants"`
	Notes        string        `json:"notes,omitempty"`
	Status       BookingStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
}

type Review struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Rating   int       `json:"rating"`
	Comment  string    `json:"comment"`
	Date     time.Time `json:"date"`
	Approved bool      `json:"approved"`
}

type GalleryCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type ImageMetadata struct {
	Filename   string    `json:"filename"`
	Categories []string  `json:"categories"`
	Title      string    `json:"title,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewID returns a fresh identifier such as "slot_3f2a...".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func ValidClock(s string) bool {
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}
