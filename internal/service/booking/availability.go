package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/santafilomena/staycore/internal/domain"
	"github.com/santafilomena/staycore/internal/repository"
)

// Checker answers whether a stay collides with the active bookings of a room.
// Every call site that needs an overlap decision goes through it.
type Checker struct{}

// HasConflict reports whether any blocking booking of roomID other than
// excludeID overlaps [checkIn, checkOut). Stays that only touch at a boundary
// date do not conflict.
//
// Parameters:
//   - ctx: request-scoped context.
//   - repo: booking repository, bound to a transaction when the answer guards a write.
//   - roomID: room to inspect.
//   - checkIn, checkOut: candidate half-open stay.
//   - excludeID: booking to ignore, or uuid.Nil.
//
// Returns:
//   - bool: true on the first overlap found.
//   - error: repository errors, wrapped.
func (Checker) HasConflict(
	ctx context.Context,
	repo repository.BookingRepository,
	roomID int64,
	checkIn, checkOut domain.Date,
	excludeID uuid.UUID,
) (bool, error) {
	const op = "service.booking.Checker.HasConflict"

	active, err := repo.FindActiveBookings(ctx, roomID, excludeID)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	for _, b := range active {
		if b.Blocks(checkIn, checkOut) {
			return true, nil
		}
	}

	return false, nil
}

// Conflicts returns every blocking booking that overlaps the stay, ordered by check-in.
func (Checker) Conflicts(
	ctx context.Context,
	repo repository.BookingRepository,
	roomID int64,
	checkIn, checkOut domain.Date,
	excludeID uuid.UUID,
) ([]domain.Booking, error) {
	const op = "service.booking.Checker.Conflicts"

	active, err := repo.FindActiveBookings(ctx, roomID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out []domain.Booking
	for _, b := range active {
		if b.Blocks(checkIn, checkOut) {
			out = append(out, b)
		}
	}

	return out, nil
}
