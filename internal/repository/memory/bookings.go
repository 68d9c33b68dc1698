package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santafilomena/staycore/internal/domain"
	"github.com/santafilomena/staycore/internal/repository"
)

// bookingRepo works inside tx when it is set; otherwise every write commits on its own.
type bookingRepo struct {
	s  *Store
	tx *tx
}

// within runs fn in the bound transaction, or in a one-statement transaction.
func (r *bookingRepo) within(fn func(t *tx) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}

	t := newTx(r.s)
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}

	return t.commit()
}

func (r *bookingRepo) read() map[uuid.UUID]domain.Booking {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if r.tx != nil {
		return r.tx.view()
	}

	return snapshot(r.s)
}

func (r *bookingRepo) LockRoom(ctx context.Context, roomID int64) error {
	const op = "memory.BookingRepo.LockRoom"

	r.s.mu.RLock()
	_, ok := r.s.rooms[roomID]
	r.s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	if r.tx == nil || r.tx.holds(roomID) {
		return nil
	}

	if err := r.s.locks.lock(ctx, roomID); err != nil {
		return fmt.Errorf("%s:%w: %v", op, repository.ErrLockTimeout, err)
	}

	r.tx.held = append(r.tx.held, roomID)

	return nil
}

func (r *bookingRepo) FindActiveBookings(_ context.Context, roomID int64, excludeID uuid.UUID) ([]domain.Booking, error) {
	var out []domain.Booking
	for id, b := range r.read() {
		if b.RoomID != roomID || !b.Status.IsBlocking() {
			continue
		}
		if excludeID != uuid.Nil && id == excludeID {
			continue
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })

	return out, nil
}

func (r *bookingRepo) ReferenceExists(_ context.Context, reference string) (bool, error) {
	for _, b := range r.read() {
		if b.Reference == reference {
			return true, nil
		}
	}

	return false, nil
}

func (r *bookingRepo) InsertBooking(_ context.Context, b *domain.Booking) error {
	const op = "memory.BookingRepo.InsertBooking"

	err := r.within(func(t *tx) error {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()

		view := t.view()
		for _, other := range view {
			if other.Reference == b.Reference {
				return repository.ErrConflict
			}
		}

		if b.Status.IsBlocking() && overlapsAny(view, *b, b.ID) {
			return repository.ErrOverlap
		}

		t.inserts = append(t.inserts, *b)

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (r *bookingRepo) GetBooking(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "memory.BookingRepo.GetBooking"

	b, ok := r.read()[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return &b, nil
}

func (r *bookingRepo) GetBookingByReference(_ context.Context, reference string) (*domain.Booking, error) {
	const op = "memory.BookingRepo.GetBookingByReference"

	for _, b := range r.read() {
		if b.Reference == reference {
			return &b, nil
		}
	}

	return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
}

func (r *bookingRepo) ListBookings(_ context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var out []domain.Booking
	for _, b := range r.read() {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.RoomID != 0 && b.RoomID != filter.RoomID {
			continue
		}
		if !filter.CheckInGTE.IsZero() && b.CheckIn.Before(filter.CheckInGTE) {
			continue
		}
		if !filter.CheckInLT.IsZero() && !b.CheckIn.Before(filter.CheckInLT) {
			continue
		}
		if search != "" && !matchesSearch(b, search) {
			continue
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Reference < out[j].Reference
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}

func matchesSearch(b domain.Booking, needle string) bool {
	for _, field := range []string{b.Reference, b.GuestName, b.GuestEmail, b.GuestPhone} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (r *bookingRepo) UpdateBookingStatus(
	_ context.Context,
	id uuid.UUID,
	status domain.BookingStatus,
	at time.Time,
) error {
	const op = "memory.BookingRepo.UpdateBookingStatus"

	err := r.within(func(t *tx) error {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()

		view := t.view()
		b, ok := view[id]
		if !ok {
			return repository.ErrNotFound
		}

		wasBlocking := b.Status.IsBlocking()
		b.Status = status
		if !wasBlocking && status.IsBlocking() && overlapsAny(view, b, id) {
			return repository.ErrOverlap
		}

		t.updates[id] = statusUpdate{status: status, at: at}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
