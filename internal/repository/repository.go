package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/santafilomena/staycore/internal/domain"
)

// RoomRepository is the read side of the room catalog.
type RoomRepository interface {
	// GetRoom returns ErrNotFound for unknown ids.
	GetRoom(ctx context.Context, id int64) (*domain.Room, error)
	ListRooms(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error)
	// CreateRoom is used by seeding and tests; catalog management is external.
	CreateRoom(ctx context.Context, room *domain.Room) error
}

type BookingRepository interface {
	// LockRoom serializes every booking write on roomID until the surrounding
	// transaction ends. It returns ErrNotFound for unknown rooms and
	// ErrLockTimeout when the wait is abandoned.
	LockRoom(ctx context.Context, roomID int64) error

	// FindActiveBookings returns the blocking bookings of a room, skipping
	// excludeID when it is not uuid.Nil.
	FindActiveBookings(ctx context.Context, roomID int64, excludeID uuid.UUID) ([]domain.Booking, error)

	ReferenceExists(ctx context.Context, reference string) (bool, error)

	// InsertBooking returns ErrConflict on a duplicate reference and
	// ErrOverlap when an active booking already covers part of the stay.
	InsertBooking(ctx context.Context, b *domain.Booking) error

	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error)
	ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)

	// UpdateBookingStatus returns ErrOverlap when re-activating a booking would
	// collide with another active one.
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus, at time.Time) error
}

// Repos groups the repositories bound to one database handle.
type Repos interface {
	Rooms() RoomRepository
	Bookings() BookingRepository
}

// Store opens transactions over the repositories. Outside RunTx the
// repositories run each call in its own implicit transaction.
type Store interface {
	Repos
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}
