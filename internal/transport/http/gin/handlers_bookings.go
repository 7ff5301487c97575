package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/atelier/internal/repository/redis"
	"github.com/kirinyoku/atelier/internal/service"
	"github.com/kirinyoku/atelier/internal/service/bookings"
)

// @Summary  Book a slot (idempotent)
// @Tags     bookings
// @Param    req  body  CreateBookingRequest  true  "payload"
// @Param    Idempotency-Key  header  string  false  "client retry key"
// @Success  201  {object}  BookingResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse  "slot not found"
// @Failure  409  {object}  ErrorResponse  "not enough capacity / idempotency key in progress"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /api/bookings [post]
func handleCreateBooking(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return idempotent(idem, "bookings", func(c *gin.Context) (int, any, error) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return 0, nil, inputError(err)
		}

		res, err := svcs.Bookings.Add(c.Request.Context(), bookings.AddInput{
			SlotID:       req.SlotID,
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			Participants: req.Participants,
			Notes:        req.Notes,
		})
		if err != nil {
			return 0, nil, err
		}

		return http.StatusCreated, newBookingResponse(res), nil
	})
}

// @Summary  List bookings with slot details
// @Tags     admin
// @Security BasicAuth
// @Success  200  {array}  bookings.Enriched
// @Router   /api/admin/bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Bookings.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Update booking
// @Description Use the cancel endpoint to cancel. Changing participants adjusts the slot.
// @Tags     admin
// @Security BasicAuth
// @Param    id   path  string                true  "Booking ID"
// @Param    req  body  UpdateBookingRequest  true  "fields to change"
// @Success  200  {object}  BookingResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /api/admin/bookings/{id} [patch]
func handleUpdateBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		res, err := svcs.Bookings.Update(c.Request.Context(), c.Param("id"), req.toDomain())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, newBookingResponse(res))
	}
}

// @Summary  Confirm booking
// @Tags     admin
// @Security BasicAuth
// @Param    id  path  string  true  "Booking ID"
// @Success  200  {object}  BookingResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /api/admin/bookings/{id}/confirm [post]
func handleConfirmBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svcs.Bookings.Confirm(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, newBookingResponse(res))
	}
}

// @Summary  Cancel booking
// @Description Returns the seats to the slot. Cancelling twice is rejected.
// @Tags     admin
// @Security BasicAuth
// @Param    id  path  string  true  "Booking ID"
// @Success  200  {object}  domain.Booking
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /api/admin/bookings/{id}/cancel [post]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svcs.Bookings.Cancel(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}
