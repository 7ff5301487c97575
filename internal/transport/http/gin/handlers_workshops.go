package httpgin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/atelier/internal/repository/redis"
	"github.com/kirinyoku/atelier/internal/service"
	"github.com/kirinyoku/atelier/internal/service/workshops"
)

// @Summary  List active workshops with remaining spots
// @Tags     workshops
// @Success  200  {array}  workshops.Public
// @Router   /api/workshops [get]
func handleListPublicWorkshops(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Workshops.ListPublic(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, list, "public, max-age=15")
	}
}

// @Summary  Book a workshop (idempotent)
// @Tags     workshops
// @Param    id   path  string                  true  "Workshop ID"
// @Param    req  body  WorkshopBookingRequest  true  "payload"
// @Param    Idempotency-Key  header  string  false  "client retry key"
// @Success  201  {object}  WorkshopBookingResponse
// @Failure  400  {object}  ErrorResponse  "invalid input / workshop inactive"
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "not enough spots (availableSpots set)"
// @Failure  429  {object}  ErrorResponse
// @Router   /api/workshops/{id}/bookings [post]
func handleBookWorkshop(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return idempotent(idem, "workshop-bookings", func(c *gin.Context) (int, any, error) {
		var req WorkshopBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return 0, nil, inputError(err)
		}

		res, err := svcs.Workshops.Book(c.Request.Context(), workshops.BookInput{
			WorkshopID:   c.Param("id"),
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			Participants: req.Participants,
			Notes:        req.Notes,
		})
		if err != nil {
			return 0, nil, err
		}

		return http.StatusCreated, newWorkshopBookingResponse(res), nil
	})
}

// @Summary  List workshops
// @Tags     admin
// @Security BasicAuth
// @Param    includeInactive  query  bool  false  "defaults to true"
// @Success  200  {array}  domain.Workshop
// @Router   /api/admin/workshops [get]
func handleAdminListWorkshops(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		includeInactive := true
		if v := c.Query("includeInactive"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				badRequest(c, "invalid includeInactive")
				return
			}
			includeInactive = b
		}

		list, err := svcs.Workshops.List(c.Request.Context(), includeInactive)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Create workshop
// @Tags     admin
// @Security BasicAuth
// @Param    req  body  WorkshopRequest  true  "payload"
// @Success  201  {object}  domain.Workshop
// @Failure  400  {object}  ErrorResponse
// @Router   /api/admin/workshops [post]
func handleCreateWorkshop(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WorkshopRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		w, err := svcs.Workshops.Create(c.Request.Context(), workshops.CreateInput{
			Title:               req.Title,
			Description:         req.Description,
			DetailedDescription: req.DetailedDescription,
			Date:                req.Date,
			Time:                req.Time,
			Price:               req.Price,
			MaxParticipants:     req.MaxParticipants,
			Active:              req.Active,
			ImageFilename:       req.ImageFilename,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, w)
	}
}

// @Summary  Update workshop
// @Tags     admin
// @Security BasicAuth
// @Param    id   path  string                 true  "Workshop ID"
// @Param    req  body  UpdateWorkshopRequest  true  "fields to change"
// @Success  200  {object}  domain.Workshop
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/workshops/{id} [patch]
func handleUpdateWorkshop(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateWorkshopRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		w, err := svcs.Workshops.Update(c.Request.Context(), c.Param("id"), req.toDomain())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, w)
	}
}

// @Summary  Delete workshop
// @Tags     admin
// @Security BasicAuth
// @Param    id  path  string  true  "Workshop ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/workshops/{id} [delete]
func handleDeleteWorkshop(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Workshops.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List workshop bookings
// @Tags     admin
// @Security BasicAuth
// @Success  200  {array}  workshops.EnrichedBooking
// @Router   /api/admin/workshop-bookings [get]
func handleListWorkshopBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Workshops.ListBookings(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Confirm workshop booking
// @Tags     admin
// @Security BasicAuth
// @Param    id  path  string  true  "Workshop booking ID"
// @Success  200  {object}  WorkshopBookingResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /api/admin/workshop-bookings/{id}/confirm [post]
func handleConfirmWorkshopBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svcs.Workshops.ConfirmBooking(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, newWorkshopBookingResponse(res))
	}
}

// @Summary  Cancel workshop booking
// @Tags     admin
// @Security BasicAuth
// @Param    id  path  string  true  "Workshop booking ID"
// @Success  200  {object}  domain.WorkshopBooking
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /api/admin/workshop-bookings/{id}/cancel [post]
func handleCancelWorkshopBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svcs.Workshops.CancelBooking(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}
