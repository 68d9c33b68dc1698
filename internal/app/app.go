package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/santafilomena/staycore/internal/config"
	"github.com/santafilomena/staycore/internal/notify"
	"github.com/santafilomena/staycore/internal/postgres"
	"github.com/santafilomena/staycore/internal/redis"
	"github.com/santafilomena/staycore/internal/repository"
	"github.com/santafilomena/staycore/internal/repository/memory"
	postgresrepo "github.com/santafilomena/staycore/internal/repository/postgres"
	redisrepo "github.com/santafilomena/staycore/internal/repository/redis"
	"github.com/santafilomena/staycore/internal/service"
	"github.com/santafilomena/staycore/internal/service/booking"
	"github.com/santafilomena/staycore/internal/service/catalog"
	httpgin "github.com/santafilomena/staycore/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	cache      *redisrepo.Cache
	pubsub     *redisrepo.RoomsPubSub
	consumer   *notify.Consumer
	closers    []func()
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var rdb *goredis.Client
	redisCfg := redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	if redisCfg.Enabled() {
		rdb, err = redis.New(ctx, redisCfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	} else {
		logger.Warn("REDIS_ADDR not set; cache, rate limiting and idempotency are disabled")
	}

	// Initialize repositories
	a.cache = redisrepo.New(rdb)
	a.pubsub = redisrepo.NewRoomsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "booking", cfg.Booking.RateLimit, cfg.Booking.RateWindow)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)

	dispatcher := notify.NewDispatcher(notify.LogMailer{Logger: logger}, cfg.Hotel.ManagerEmail, logger)

	var notifier booking.Notifier
	if cfg.RabbitMQ.URL != "" {
		publisher := notify.NewAMQPPublisher(cfg.RabbitMQ.URL, logger)
		a.closers = append(a.closers, func() { _ = publisher.Close() })
		notifier = publisher
		a.consumer = notify.NewConsumer(cfg.RabbitMQ.URL, dispatcher, logger)
	} else {
		notifier = notify.NewDirect(dispatcher)
	}

	// Initialize services
	a.services = service.NewServices(store, a.cache, a.pubsub, limiter, notifier, logger, service.Config{
		Booking: booking.Config{
			Location:      cfg.Hotel.Location,
			LockTimeout:   cfg.Booking.LockTimeout,
			NotifyTimeout: cfg.Booking.NotifyTimeout,
			ReferenceTag:  cfg.Booking.ReferencePrefix,
		},
		Catalog: catalog.Config{
			Location: cfg.Hotel.Location,
		},
	})

	router := httpgin.NewRouter(a.services, idempotencyStore, logger, httpgin.Options{
		AdminToken: cfg.Server.AdminToken,
	})

	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.Storage == config.StorageMemory {
		store := memory.NewStore()
		if err := memory.Seed(ctx, store, memory.DemoRooms()); err != nil {
			return nil, fmt.Errorf("failed to seed rooms: %w", err)
		}
		a.logger.Warn("using in-memory storage; bookings are lost on restart")
		return store, nil
	}

	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      a.cfg.Postgres.ConnString(),
		MaxConns: a.cfg.Postgres.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.closers = append(a.closers, pgxPool.Close)

	if a.cfg.Postgres.MigrateOnStart {
		applied, err := postgres.Migrate(ctx, pgxPool)
		if err != nil {
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		if len(applied) > 0 {
			a.logger.Info("migrations applied", slog.Any("files", applied))
		}
	}

	return postgresrepo.NewStore(pgxPool), nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached room data when another instance changes a room's bookings
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, roomID int64) {
			if err := a.cache.InvalidateRoom(ctx, roomID); err != nil {
				a.logger.WarnContext(ctx, "room cache invalidation failed", slog.Int64("room_id", roomID), slog.Any("err", err))
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("room subscription: %w", err)
		}
		return nil
	})

	if a.consumer != nil {
		g.Go(func() error {
			return a.consumer.Run(gCtx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := a.httpServer.Shutdown(ctx)
		a.services.Booking.Wait()
		return err
	})

	return g.Wait()
}

// Close releases the connections opened by New, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
