package httpgin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/atelier/internal/domain"
	"github.com/kirinyoku/atelier/internal/service"
	"github.com/kirinyoku/atelier/internal/service/slots"
)

// @Summary  List upcoming slots
// @Tags     slots
// @Param    from  query  string  false  "first day (YYYY-MM-DD), defaults to today"
// @Success  200  {array}   domain.TimeSlot
// @Failure  400  {object}  ErrorResponse
// @Router   /api/slots [get]
func handleListSlots(svcs *service.Services, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		from := c.Query("from")
		if from == "" {
			from = time.Now().In(loc).Format(domain.DateLayout)
		} else if !domain.ValidDate(from) {
			badRequest(c, "invalid from (YYYY-MM-DD)")
			return
		}

		list, err := svcs.Slots.ListUpcoming(c.Request.Context(), from)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, list, "public, max-age=15")
	}
}

// @Summary  List all slots
// @Tags     admin
// @Security BasicAuth
// @Success  200  {array}  domain.TimeSlot
// @Router   /api/admin/slots [get]
func handleAdminListSlots(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Slots.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Create slot
// @Tags     admin
// @Security BasicAuth
// @Param    req  body  CreateSlotRequest  true  "payload"
// @Success  201  {object}  domain.TimeSlot
// @Failure  400  {object}  ErrorResponse
// @Router   /api/admin/slots [post]
func handleCreateSlot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateSlotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		slot, err := svcs.Slots.Create(c.Request.Context(), slots.CreateInput{
			Date:          req.Date,
			Time:          req.Time,
			EndTime:       req.EndTime,
			MaxCapacity:   req.MaxCapacity,
			InitialBooked: req.InitialBooked,
			EventType:     req.EventType,
			EventDuration: req.EventDuration,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, slot)
	}
}

// @Summary  Update slot
// @Description Changing maxCapacity keeps the seats already booked.
// @Tags     admin
// @Security BasicAuth
// @Param    id   path  string             true  "Slot ID"
// @Param    req  body  UpdateSlotRequest  true  "fields to change"
// @Success  200  {object}  domain.TimeSlot
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/slots/{id} [patch]
func handleUpdateSlot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateSlotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		slot, err := svcs.Slots.Update(c.Request.Context(), c.Param("id"), req.toDomain())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, slot)
	}
}

// @Summary  Delete slot
// @Tags     admin
// @Security BasicAuth
// @Param    id  path  string  true  "Slot ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/slots/{id} [delete]
func handleDeleteSlot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Slots.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Recompute slot availability from bookings
// @Tags     admin
// @Security BasicAuth
// @Param    id  path  string  true  "Slot ID"
// @Success  200  {object}  domain.TimeSlot
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/slots/{id}/recompute [post]
func handleRecomputeSlot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		slot, err := svcs.Slots.Recompute(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, slot)
	}
}
