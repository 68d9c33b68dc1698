// Package memory is an in-process implementation of the repository contracts.
// It enforces the same constraints as the Postgres schema: unique booking
// references and no overlapping blocking bookings per room, both checked at
// statement time and again at commit.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santafilomena/staycore/internal/domain"
	"github.com/santafilomena/staycore/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	rooms    map[int64]domain.Room
	bookings map[uuid.UUID]domain.Booking
	refs     map[string]uuid.UUID
	nextRoom int64

	locks *roomLocks
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		rooms:    make(map[int64]domain.Room),
		bookings: make(map[uuid.UUID]domain.Booking),
		refs:     make(map[string]uuid.UUID),
		locks:    newRoomLocks(),
		now:      time.Now,
	}
}

func (s *Store) Rooms() repository.RoomRepository { return &roomRepo{s: s} }

func (s *Store) Bookings() repository.BookingRepository { return &bookingRepo{s: s} }

// RunTx runs fn against a transaction whose writes become visible to others
// only after fn returns nil. Room locks taken inside fn are released after commit.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repos) error) error {
	t := newTx(s)
	defer t.release()

	if err := fn(ctx, t); err != nil {
		return err
	}

	if err := t.commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

type statusUpdate struct {
	status domain.BookingStatus
	at     time.Time
}

type tx struct {
	s       *Store
	held    []int64
	inserts []domain.Booking
	updates map[uuid.UUID]statusUpdate
}

func newTx(s *Store) *tx {
	return &tx{s: s, updates: make(map[uuid.UUID]statusUpdate)}
}

func (t *tx) Rooms() repository.RoomRepository { return &roomRepo{s: t.s} }

func (t *tx) Bookings() repository.BookingRepository { return &bookingRepo{s: t.s, tx: t} }

func (t *tx) release() {
	for _, id := range t.held {
		t.s.locks.unlock(id)
	}
	t.held = nil
}

func (t *tx) holds(roomID int64) bool {
	for _, id := range t.held {
		if id == roomID {
			return true
		}
	}
	return false
}

// view returns every booking as this transaction sees it. Callers hold s.mu.
func (t *tx) view() map[uuid.UUID]domain.Booking {
	out := snapshot(t.s)
	for _, b := range t.inserts {
		out[b.ID] = b
	}
	for id, u := range t.updates {
		if b, ok := out[id]; ok {
			b.Status = u.status
			b.UpdatedAt = u.at
			out[id] = b
		}
	}
	return out
}

func (t *tx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	committed := snapshot(t.s)
	seen := make(map[string]struct{}, len(t.inserts))

	for _, b := range t.inserts {
		if _, dup := t.s.refs[b.Reference]; dup {
			return repository.ErrConflict
		}
		if _, dup := seen[b.Reference]; dup {
			return repository.ErrConflict
		}
		seen[b.Reference] = struct{}{}
		if b.Status.IsBlocking() && overlapsAny(committed, b, b.ID) {
			return repository.ErrOverlap
		}
		committed[b.ID] = b
	}

	for id, u := range t.updates {
		b, ok := committed[id]
		if !ok {
			return repository.ErrNotFound
		}
		wasBlocking := b.Status.IsBlocking()
		b.Status = u.status
		b.UpdatedAt = u.at
		if !wasBlocking && b.Status.IsBlocking() && overlapsAny(committed, b, b.ID) {
			return repository.ErrOverlap
		}
		committed[id] = b
	}

	for _, b := range t.inserts {
		t.s.refs[b.Reference] = b.ID
	}
	t.s.bookings = committed

	return nil
}

// snapshot copies the committed bookings. Callers hold s.mu.
func snapshot(s *Store) map[uuid.UUID]domain.Booking {
	out := make(map[uuid.UUID]domain.Booking, len(s.bookings))
	for id, b := range s.bookings {
		out[id] = b
	}
	return out
}

// overlapsAny reports whether a blocking booking other than skip on b's room
// overlaps b's stay.
func overlapsAny(all map[uuid.UUID]domain.Booking, b domain.Booking, skip uuid.UUID) bool {
	for id, other := range all {
		if id == skip || other.RoomID != b.RoomID {
			continue
		}
		if other.Blocks(b.CheckIn, b.CheckOut) {
			return true
		}
	}
	return false
}
