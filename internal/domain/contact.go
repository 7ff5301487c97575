package domain

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// NormalizeEmail trims and lower-cases an address before it is stored.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// BookingUpdate is the field update set accepted by the booking ledger.
type BookingUpdate struct {
	Status       Optional[BookingStatus]
	Participants Optional[int]
	Name         Optional[string]
	Email        Optional[string]
	Phone        Optional[string]
	Notes        Optional[string]
}

// WorkshopUpdate is the field update set for workshop definitions.
type WorkshopUpdate struct {
	Title               Optional[string]
	Description         Optional[string]
	DetailedDescription Optional[string]
	Date                Optional[string]
	Time                Optional[string]
	Price               Optional[string]
	MaxParticipants     Optional[int]
	Active              Optional[bool]
	ImageFilename       Optional[string]
}
