package service

import (
	"log/slog"

	"github.com/kirinyoku/atelier/internal/metrics"
	documentrepo "github.com/kirinyoku/atelier/internal/repository/document"
	redisrepo "github.com/kirinyoku/atelier/internal/repository/redis"
	"github.com/kirinyoku/atelier/internal/service/bookings"
	"github.com/kirinyoku/atelier/internal/service/changefeed"
	"github.com/kirinyoku/atelier/internal/service/gallery"
	"github.com/kirinyoku/atelier/internal/service/reviews"
	"github.com/kirinyoku/atelier/internal/service/slots"
	"github.com/kirinyoku/atelier/internal/service/workshops"
	"github.com/kirinyoku/atelier/internal/uow"
)

// Notifier covers every notification the services send.
type Notifier interface {
	bookings.Notifier
	workshops.Notifier
	reviews.Notifier
}

type Services struct {
	Slots     *slots.Service
	Bookings  *bookings.Service
	Workshops *workshops.Service
	Reviews   *reviews.Service
	Gallery   *gallery.Service
}

func NewServices(
	store *documentrepo.Store,
	u *uow.UoW,
	cache *redisrepo.Cache,
	feed *changefeed.Feed,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Services {
	return &Services{
		Slots:     slots.New(store, u, cache, feed, logger),
		Bookings:  bookings.New(store, u, feed, notifier, m, logger),
		Workshops: workshops.New(store, u, cache, feed, notifier, m, logger),
		Reviews:   reviews.New(store, u, cache, feed, notifier, m, logger),
		Gallery:   gallery.New(store, u, logger),
	}
}
