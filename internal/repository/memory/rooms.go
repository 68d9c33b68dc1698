package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/santafilomena/staycore/internal/domain"
	"github.com/santafilomena/staycore/internal/repository"
)

type roomRepo struct {
	s *Store
}

func (r *roomRepo) GetRoom(_ context.Context, id int64) (*domain.Room, error) {
	const op = "memory.RoomRepo.GetRoom"

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	room, ok := r.s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return &room, nil
}

func (r *roomRepo) ListRooms(_ context.Context, filter domain.RoomFilter) ([]domain.Room, error) {
	r.s.mu.RLock()
	out := make([]domain.Room, 0, len(r.s.rooms))
	for _, room := range r.s.rooms {
		if filter.Match(room) {
			out = append(out, room)
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch filter.Sort {
		case domain.SortPriceDesc:
			if a.PricePerNight != b.PricePerNight {
				return a.PricePerNight > b.PricePerNight
			}
		case domain.SortCapacity:
			if a.Capacity != b.Capacity {
				return a.Capacity > b.Capacity
			}
		case domain.SortName:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		default:
			if a.PricePerNight != b.PricePerNight {
				return a.PricePerNight < b.PricePerNight
			}
		}
		return a.ID < b.ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}

func (r *roomRepo) CreateRoom(_ context.Context, room *domain.Room) error {
	const op = "memory.RoomRepo.CreateRoom"

	if err := room.Validate(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextRoom++
	room.ID = r.s.nextRoom
	now := r.s.now()
	room.CreatedAt = now
	room.UpdatedAt = now
	r.s.rooms[room.ID] = *room

	return nil
}
