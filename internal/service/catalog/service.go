package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santafilomena/staycore/internal/domain"
	redisx "github.com/santafilomena/staycore/internal/redis"
	"github.com/santafilomena/staycore/internal/repository"
	redisrepo "github.com/santafilomena/staycore/internal/repository/redis"
)

type Config struct {
	RoomTTL      time.Duration
	ListTTL      time.Duration
	OccupancyTTL time.Duration
	DefaultLimit int
	MaxLimit     int
	// Location decides which calendar day "today" is for occupancy.
	Location *time.Location
	Now      func() time.Time
}

type Service struct {
	store repository.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store repository.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.RoomTTL <= 0 {
		cfg.RoomTTL = 5 * time.Minute
	}

	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 60 * time.Second
	}

	if cfg.OccupancyTTL <= 0 {
		cfg.OccupancyTTL = 30 * time.Second
	}

	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}

	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 200
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// Get retrieves a bookable room by its ID through the cache. Rooms taken
// off sale are reported as missing, the same as List leaves them out.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the room to retrieve.
//
// Returns:
//   - *domain.Room: the room.
//   - error: catalog.ErrRoomNotFound if the room does not exist or is not available.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Room, error) {
	const op = "service.catalog.Get"

	room, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyRoom(id),
		s.cfg.RoomTTL,
		func(ctx context.Context) (domain.Room, error) {
			r, err := s.store.Rooms().GetRoom(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Room{}, ErrRoomNotFound
				}

				return domain.Room{}, err
			}

			if !r.IsAvailable {
				return domain.Room{}, ErrRoomNotFound
			}

			return *r, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &room, nil
}

// List returns the bookable rooms matching filter, sorted by filter.Sort
// (cheapest first by default).
func (s *Service) List(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error) {
	const op = "service.catalog.List"

	if filter.Limit <= 0 {
		filter.Limit = s.cfg.DefaultLimit
	}

	if filter.Limit > s.cfg.MaxLimit {
		filter.Limit = s.cfg.MaxLimit
	}

	switch filter.Sort {
	case domain.SortPriceAsc, domain.SortPriceDesc, domain.SortCapacity, domain.SortName:
	default:
		filter.Sort = domain.SortPriceAsc
	}

	rooms, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyRoomList(filter.CacheKey()),
		s.cfg.ListTTL,
		func(ctx context.Context) ([]domain.Room, error) {
			out, err := s.store.Rooms().ListRooms(ctx, filter)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = []domain.Room{}
			}
			return out, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return rooms, nil
}

// Occupancy lists the stays that block a room from today on, ordered by
// check-in. The date picker greys these nights out.
func (s *Service) Occupancy(ctx context.Context, roomID int64) ([]domain.Interval, error) {
	const op = "service.catalog.Occupancy"

	today := domain.DateOf(s.cfg.Now(), s.cfg.Location)

	intervals, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyRoomOccupancy(roomID),
		s.cfg.OccupancyTTL,
		func(ctx context.Context) ([]domain.Interval, error) {
			if _, err := s.store.Rooms().GetRoom(ctx, roomID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, ErrRoomNotFound
				}

				return nil, err
			}

			active, err := s.store.Bookings().FindActiveBookings(ctx, roomID, uuid.Nil)
			if err != nil {
				return nil, err
			}

			out := make([]domain.Interval, 0, len(active))
			for _, b := range active {
				if b.CheckOut.After(today) {
					out = append(out, b.Interval())
				}
			}

			return out, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return intervals, nil
}
