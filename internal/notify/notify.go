// Package notify sends customer and studio emails about bookings.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kirinyoku/atelier/internal/domain"
)

var ErrNotConfigured = errors.New("email delivery not configured")

// Log only records notifications. It is used when SMTP is not configured and
// reports ErrNotConfigured so callers can surface that nothing was sent.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) BookingCreated(_ context.Context, b domain.Booking, slot domain.TimeSlot) error {
	l.logger.Info("booking created", "booking_id", b.ID, "slot_id", slot.ID, "participants", b.Participants)
	return ErrNotConfigured
}

func (l *Log) BookingConfirmed(_ context.Context, b domain.Booking, slot domain.TimeSlot) error {
	l.logger.Info("booking confirmed", "booking_id", b.ID, "slot_id", slot.ID, "email", b.Email)
	return ErrNotConfigured
}

func (l *Log) WorkshopBookingCreated(_ context.Context, b domain.WorkshopBooking, w domain.Workshop) error {
	l.logger.Info("workshop booking created", "booking_id", b.ID, "workshop_id", w.ID, "participants", b.Participants)
	return ErrNotConfigured
}

func (l *Log) WorkshopBookingConfirmed(_ context.Context, b domain.WorkshopBooking, w domain.Workshop) error {
	l.logger.Info("workshop booking confirmed", "booking_id", b.ID, "workshop_id", w.ID, "email", b.Email)
	return ErrNotConfigured
}

func (l *Log) ReviewSubmitted(_ context.Context, r domain.Review) error {
	l.logger.Info("review submitted", "review_id", r.ID, "rating", r.Rating)
	return ErrNotConfigured
}
