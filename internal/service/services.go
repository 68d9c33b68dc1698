package service

import (
	"log/slog"

	"github.com/santafilomena/staycore/internal/repository"
	redis "github.com/santafilomena/staycore/internal/repository/redis"
	"github.com/santafilomena/staycore/internal/service/booking"
	"github.com/santafilomena/staycore/internal/service/catalog"
)

type Services struct {
	Booking *booking.Service
	Catalog *catalog.Service
}

type Config struct {
	Booking booking.Config
	Catalog catalog.Config
}

func NewServices(
	store repository.Store,
	cache *redis.Cache,
	pubsub *redis.RoomsPubSub,
	limiter *redis.SlidingWindowLimiter,
	notifier booking.Notifier,
	logger *slog.Logger,
	cfg Config,
) *Services {
	return &Services{
		Booking: booking.New(store, cache, pubsub, limiter, notifier, logger, cfg.Booking),
		Catalog: catalog.New(store, cache, cfg.Catalog),
	}
}
