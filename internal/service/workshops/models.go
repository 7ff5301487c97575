package workshops

import "github.com/kirinyoku/atelier/internal/domain"

type CreateInput struct {
	Title               string
	Description         string
	DetailedDescription string
	Date                string
	Time                string
	Price               string
	MaxParticipants     int
	Active              bool
	ImageFilename       string
}

type BookInput struct {
	WorkshopID   string
	Name         string
	Email        string
	Phone        string
	Participants int
	Notes        string
}

// Public is a workshop as shown on the website.
type Public struct {
	domain.Workshop
	RemainingSpots int `json:"remainingSpots"`
}

type Result struct {
	Booking           domain.WorkshopBooking
	NotificationSent  bool
	NotificationError string
}

// EnrichedBooking joins a workshop booking with the workshop it belongs to.
type EnrichedBooking struct {
	domain.WorkshopBooking
	WorkshopTitle string `json:"workshopTitle"`
	WorkshopDate  string `json:"workshopDate,omitempty"`
	WorkshopTime  string `json:"workshopTime,omitempty"`
	WorkshopPrice string `json:"workshopPrice,omitempty"`
}
