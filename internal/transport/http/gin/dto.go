package httpgin

import (
	"github.com/kirinyoku/atelier/internal/domain"
	"github.com/kirinyoku/atelier/internal/service/bookings"
	"github.com/kirinyoku/atelier/internal/service/workshops"
)

type ErrorResponse struct {
	Error          string `json:"error"`
	AvailableSpots *int   `json:"availableSpots,omitempty"`
}

type CreateBookingRequest struct {
	SlotID       string `json:"slotId" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Phone        string `json:"phone"`
	Participants int    `json:"participants"`
	Notes        string `json:"notes"`
}

type BookingResponse struct {
	Success    bool           `json:"success"`
	Booking    domain.Booking `json:"booking"`
	EmailSent  bool           `json:"emailSent"`
	EmailError string         `json:"emailError,omitempty"`
}

func newBookingResponse(r bookings.Result) BookingResponse {
	return BookingResponse{
		Success:    true,
		Booking:    r.Booking,
		EmailSent:  r.NotificationSent,
		EmailError: r.NotificationError,
	}
}

// UpdateBookingRequest carries only the fields to change; omitted fields
// keep their value.
type UpdateBookingRequest struct {
	Status       domain.Optional[domain.BookingStatus] `json:"status" swaggertype:"string"`
	Participants domain.Optional[int]                  `json:"participants" swaggertype:"integer"`
	Name         domain.Optional[string]               `json:"name" swaggertype:"string"`
	Email        domain.Optional[string]               `json:"email" swaggertype:"string"`
	Phone        domain.Optional[string]               `json:"phone" swaggertype:"string"`
	Notes        domain.Optional[string]               `json:"notes" swaggertype:"string"`
}

func (r UpdateBookingRequest) toDomain() domain.BookingUpdate {
	return domain.BookingUpdate{
		Status:       r.Status,
		Participants: r.Participants,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Notes:        r.Notes,
	}
}

type CreateSlotRequest struct {
	Date          string           `json:"date" binding:"required"`
	Time          string           `json:"time" binding:"required"`
	EndTime       string           `json:"endTime"`
	MaxCapacity   int              `json:"maxCapacity" binding:"required"`
	InitialBooked int              `json:"initialBooked"`
	EventType     domain.EventType `json:"eventType"`
	EventDuration float64          `json:"eventDuration"`
}

type UpdateSlotRequest struct {
	Date          domain.Optional[string]           `json:"date" swaggertype:"string"`
	Time          domain.Optional[string]           `json:"time" swaggertype:"string"`
	EndTime       domain.Optional[string]           `json:"endTime" swaggertype:"string"`
	MaxCapacity   domain.Optional[int]              `json:"maxCapacity" swaggertype:"integer"`
	InitialBooked domain.Optional[int]              `json:"initialBooked" swaggertype:"integer"`
	EventType     domain.Optional[domain.EventType] `json:"eventType" swaggertype:"string"`
	EventDuration domain.Optional[float64]          `json:"eventDuration" swaggertype:"number"`
}

func (r UpdateSlotRequest) toDomain() domain.SlotUpdate {
	return domain.SlotUpdate{
		Date:          r.Date,
		Time:          r.Time,
		EndTime:       r.EndTime,
		MaxCapacity:   r.MaxCapacity,
		InitialBooked: r.InitialBooked,
		EventType:     r.EventType,
		EventDuration: r.EventDuration,
	}
}

type WorkshopRequest struct {
	Title               string `json:"title" binding:"required"`
	Description         string `json:"description"`
	DetailedDescription string `json:"detailedDescription"`
	Date                string `json:"date" binding:"required"`
	Time                string `json:"time" binding:"required"`
	Price               string `json:"price"`
	MaxParticipants     int    `json:"maxParticipants" binding:"required"`
	Active              bool   `json:"active"`
	ImageFilename       string `json:"imageFilename"`
}

type UpdateWorkshopRequest struct {
	Title               domain.Optional[string] `json:"title" swaggertype:"string"`
	Description         domain.Optional[string] `json:"description" swaggertype:"string"`
	DetailedDescription domain.Optional[string] `json:"detailedDescription" swaggertype:"string"`
	Date                domain.Optional[string] `json:"date" swaggertype:"string"`
	Time                domain.Optional[string] `json:"time" swaggertype:"string"`
	Price               domain.Optional[string] `json:"price" swaggertype:"string"`
	MaxParticipants     domain.Optional[int]    `json:"maxParticipants" swaggertype:"integer"`
	Active              domain.Optional[bool]   `json:"active" swaggertype:"boolean"`
	ImageFilename       domain.Optional[string] `json:"imageFilename" swaggertype:"string"`
}

func (r UpdateWorkshopRequest) toDomain() domain.WorkshopUpdate {
	return domain.WorkshopUpdate{
		Title:               r.Title,
		Description:         r.Description,
		DetailedDescription: r.DetailedDescription,
		Date:                r.Date,
		Time:                r.Time,
		Price:               r.Price,
		MaxParticipants:     r.MaxParticipants,
		Active:              r.Active,
		ImageFilename:       r.ImageFilename,
	}
}

type WorkshopBookingRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Phone        string `json:"phone"`
	Participants int    `json:"participants"`
	Notes        string `json:"notes"`
}

type WorkshopBookingResponse struct {
	Success    bool                   `json:"success"`
	Booking    domain.WorkshopBooking `json:"booking"`
	EmailSent  bool                   `json:"emailSent"`
	EmailError string                 `json:"emailError,omitempty"`
}

func newWorkshopBookingResponse(r workshops.Result) WorkshopBookingResponse {
	return WorkshopBookingResponse{
		Success:    true,
		Booking:    r.Booking,
		EmailSent:  r.NotificationSent,
		EmailError: r.NotificationError,
	}
}

type SubmitReviewRequest struct {
	Name    string `json:"name" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment" binding:"required"`
}

type ApproveReviewRequest struct {
	Approved bool `json:"approved"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type SetImageCategoriesRequest struct {
	Filename   string   `json:"filename" binding:"required"`
	Categories []string `json:"categories"`
}
