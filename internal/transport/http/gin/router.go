package httpgin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/atelier/internal/auth"
	"github.com/kirinyoku/atelier/internal/docstore"
	"github.com/kirinyoku/atelier/internal/domain"
	"github.com/kirinyoku/atelier/internal/metrics"
	"github.com/kirinyoku/atelier/internal/repository"
	redisrepo "github.com/kirinyoku/atelier/internal/repository/redis"
	"github.com/kirinyoku/atelier/internal/service"
	"github.com/kirinyoku/atelier/internal/service/bookings"
	"github.com/kirinyoku/atelier/internal/service/gallery"
	"github.com/kirinyoku/atelier/internal/service/reviews"
	"github.com/kirinyoku/atelier/internal/service/slots"
	"github.com/kirinyoku/atelier/internal/service/workshops"
	"github.com/kirinyoku/atelier/internal/uow"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps are the optional collaborators of the router. Nil fields switch the
// matching feature off.
type Deps struct {
	Idempotency *redisrepo.IdempotencyStore
	Limiter     Limiter
	Auth        *auth.Authenticator
	Metrics     *metrics.Metrics
	Hub         *Hub
	Location    *time.Location
}

func NewRouter(
	svcs *service.Services,
	deps Deps,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	if deps.Metrics != nil {
		r.Use(MetricsMiddleware(deps.Metrics))
	}
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limited := RateLimit(deps.Limiter, logger)

	api := r.Group("/api")
	{
		api.GET("/slots", handleListSlots(svcs, deps.Location))
		api.GET("/slots/stream", handleStream(deps.Hub))
		api.POST("/bookings", limited, handleCreateBooking(svcs, deps.Idempotency))

		api.GET("/workshops", handleListPublicWorkshops(svcs))
		api.POST("/workshops/:id/bookings", limited, handleBookWorkshop(svcs, deps.Idempotency))

		api.GET("/reviews", handleListApprovedReviews(svcs))
		api.POST("/reviews", limited, handleSubmitReview(svcs))

		api.GET("/gallery/categories", handleListCategories(svcs))
		api.GET("/gallery/images", handleListImages(svcs))
	}

	admin := api.Group("/admin", AdminAuth(deps.Auth))
	{
		admin.GET("/slots", handleAdminListSlots(svcs))
		admin.POST("/slots", handleCreateSlot(svcs))
		admin.PATCH("/slots/:id", handleUpdateSlot(svcs))
		admin.DELETE("/slots/:id", handleDeleteSlot(svcs))
		admin.POST("/slots/:id/recompute", handleRecomputeSlot(svcs))

		admin.GET("/bookings", handleListBookings(svcs))
		admin.PATCH("/bookings/:id", handleUpdateBooking(svcs))
		admin.POST("/bookings/:id/confirm", handleConfirmBooking(svcs))
		admin.POST("/bookings/:id/cancel", handleCancelBooking(svcs))

		admin.GET("/workshops", handleAdminListWorkshops(svcs))
		admin.POST("/workshops", handleCreateWorkshop(svcs))
		admin.PATCH("/workshops/:id", handleUpdateWorkshop(svcs))
		admin.DELETE("/workshops/:id", handleDeleteWorkshop(svcs))

		admin.GET("/workshop-bookings", handleListWorkshopBookings(svcs))
		admin.POST("/workshop-bookings/:id/confirm", handleConfirmWorkshopBooking(svcs))
		admin.POST("/workshop-bookings/:id/cancel", handleCancelWorkshopBooking(svcs))

		admin.GET("/reviews", handleListAllReviews(svcs))
		admin.PATCH("/reviews/:id", handleApproveReview(svcs))
		admin.DELETE("/reviews/:id", handleDeleteReview(svcs))

		admin.POST("/gallery/categories", handleCreateCategory(svcs))
		admin.DELETE("/gallery/categories/:id", handleDeleteCategory(svcs))
		admin.PUT("/gallery/images", handleSetImageCategories(svcs))
	}

	return r
}

// --- Helpers ---

var errBadRequest = errors.New("bad request")

// inputError marks a request that could not be decoded.
func inputError(err error) error {
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// clientMessage drops the "pkg.Type.Op:" prefixes added while wrapping.
func clientMessage(err error) string {
	msg := err.Error()
	for {
		head, rest, ok := strings.Cut(msg, ":")
		if !ok || strings.Contains(head, " ") || !strings.Contains(head, ".") {
			break
		}
		msg = rest
	}
	return strings.TrimSpace(msg)
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var spots *workshops.NotEnoughSpotsError

	switch {
	// not found
	case errors.Is(err, slots.ErrSlotNotFound),
		errors.Is(err, bookings.ErrSlotNotFound),
		errors.Is(err, bookings.ErrBookingNotFound),
		errors.Is(err, workshops.ErrWorkshopNotFound),
		errors.Is(err, workshops.ErrBookingNotFound),
		errors.Is(err, reviews.ErrReviewNotFound),
		errors.Is(err, gallery.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: clientMessage(err)})

	// capacity
	case errors.As(err, &spots):
		available := spots.Available
		c.JSON(http.StatusConflict, ErrorResponse{Error: "not enough spots available", AvailableSpots: &available})
	case errors.Is(err, domain.ErrInsufficientCapacity):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "not enough capacity available"})

	// state transitions and conflicts
	case errors.Is(err, bookings.ErrUseCancelOperation),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyCancelled),
		errors.Is(err, gallery.ErrCategoryExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: clientMessage(err)})

	// invalid input
	case errors.Is(err, errBadRequest),
		errors.Is(err, slots.ErrInvalidInput),
		errors.Is(err, bookings.ErrInvalidInput),
		errors.Is(err, workshops.ErrInvalidInput),
		errors.Is(err, workshops.ErrWorkshopInactive),
		errors.Is(err, reviews.ErrInvalidInput),
		errors.Is(err, gallery.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidCapacity),
		errors.Is(err, domain.ErrInvalidParticipants),
		errors.Is(err, domain.ErrCapacityBelowBooked):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: clientMessage(err)})

	// storage
	case errors.Is(err, uow.ErrLocked):
		_ = c.Error(err)
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "storage busy, please retry"})
	case errors.Is(err, repository.ErrConflict):
		_ = c.Error(err)
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflicting update, please retry"})
	case errors.Is(err, docstore.ErrUnavailable):
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "storage unavailable"})

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
