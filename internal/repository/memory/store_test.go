package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santafilomena/staycore/internal/domain"
	"github.com/santafilomena/staycore/internal/repository"
)

func seedRoom(t *testing.T, s *Store) int64 {
	t.Helper()

	room := &domain.Room{Name: "Camera 1", Type: domain.RoomDouble, Capacity: 2, PricePerNight: 12000, IsAvailable: true}
	require.NoError(t, s.Rooms().CreateRoom(context.Background(), room))

	return room.ID
}

func newBooking(roomID int64, ref string, in, out int) *domain.Booking {
	return &domain.Booking{
		ID:        uuid.New(),
		Reference: ref,
		RoomID:    roomID,
		CheckIn:   domain.NewDate(2030, 1, in),
		CheckOut:  domain.NewDate(2030, 1, out),
		Guests:    1,
		Status:    domain.BookingPending,
		CreatedAt: time.Now(),
	}
}

func TestInsertEnforcesConstraints(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	roomID := seedRoom(t, s)

	require.NoError(t, s.Bookings().InsertBooking(ctx, newBooking(roomID, "SFAAAAAAAA", 1, 5)))

	err := s.Bookings().InsertBooking(ctx, newBooking(roomID, "SFAAAAAAAA", 10, 12))
	assert.ErrorIs(t, err, repository.ErrConflict)

	err = s.Bookings().InsertBooking(ctx, newBooking(roomID, "SFBBBBBBBB", 4, 8))
	assert.ErrorIs(t, err, repository.ErrOverlap)

	// adjacent is fine
	require.NoError(t, s.Bookings().InsertBooking(ctx, newBooking(roomID, "SFCCCCCCCC", 5, 8)))

	cancelled := newBooking(roomID, "SFDDDDDDDD", 2, 3)
	cancelled.Status = domain.BookingCancelled
	require.NoError(t, s.Bookings().InsertBooking(ctx, cancelled))

	active, err := s.Bookings().FindActiveBookings(ctx, roomID, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "SFAAAAAAAA", active[0].Reference)
	assert.Equal(t, "SFCCCCCCCC", active[1].Reference)

	active, err = s.Bookings().FindActiveBookings(ctx, roomID, active[0].ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestCommitIgnoresNonBlockingInserts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	roomID := seedRoom(t, s)

	require.NoError(t, s.Bookings().InsertBooking(ctx, newBooking(roomID, "SFAAAAAAAA", 1, 5)))

	for i, status := range []domain.BookingStatus{domain.BookingCancelled, domain.BookingCompleted} {
		b := newBooking(roomID, fmt.Sprintf("SFHIST000%d", i), 2, 4)
		b.Status = status

		err := s.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			return tx.Bookings().InsertBooking(ctx, b)
		})
		require.NoError(t, err, status)
	}

	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		return tx.Bookings().InsertBooking(ctx, newBooking(roomID, "SFBBBBBBBB", 3, 6))
	})
	assert.ErrorIs(t, err, repository.ErrOverlap)

	all, err := s.Bookings().ListBookings(ctx, domain.BookingFilter{RoomID: roomID})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRunTxIsolatesAndRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	roomID := seedRoom(t, s)
	b := newBooking(roomID, "SFAAAAAAAA", 1, 5)

	boom := errors.New("boom")
	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		require.NoError(t, tx.Bookings().InsertBooking(ctx, b))

		exists, err := tx.Bookings().ReferenceExists(ctx, b.Reference)
		require.NoError(t, err)
		assert.True(t, exists, "own writes are visible")

		exists, err = s.Bookings().ReferenceExists(ctx, b.Reference)
		require.NoError(t, err)
		assert.False(t, exists, "uncommitted writes are invisible outside")

		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Bookings().GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLockRoomSerializesSameRoomOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	roomA := seedRoom(t, s)
	roomB := seedRoom(t, s)

	locked := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = s.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			require.NoError(t, tx.Bookings().LockRoom(ctx, roomA))
			close(locked)
			<-done
			return nil
		})
	}()
	<-locked

	// Different room: no waiting.
	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		return tx.Bookings().LockRoom(ctx, roomB)
	})
	require.NoError(t, err)

	// Same room: waits until the deadline.
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err = s.RunTx(shortCtx, func(ctx context.Context, tx repository.Repos) error {
		return tx.Bookings().LockRoom(ctx, roomA)
	})
	assert.ErrorIs(t, err, repository.ErrLockTimeout)

	close(done)

	require.Eventually(t, func() bool {
		err := s.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			return tx.Bookings().LockRoom(ctx, roomA)
		})
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

func TestLockRoomUnknownRoom(t *testing.T) {
	s := NewStore()
	err := s.RunTx(context.Background(), func(ctx context.Context, tx repository.Repos) error {
		return tx.Bookings().LockRoom(ctx, 42)
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateStatusReactivationChecksOverlap(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	roomID := seedRoom(t, s)

	first := newBooking(roomID, "SFAAAAAAAA", 1, 5)
	require.NoError(t, s.Bookings().InsertBooking(ctx, first))
	require.NoError(t, s.Bookings().UpdateBookingStatus(ctx, first.ID, domain.BookingCancelled, time.Now()))

	second := newBooking(roomID, "SFBBBBBBBB", 3, 6)
	require.NoError(t, s.Bookings().InsertBooking(ctx, second))

	err := s.Bookings().UpdateBookingStatus(ctx, first.ID, domain.BookingConfirmed, time.Now())
	assert.ErrorIs(t, err, repository.ErrOverlap)

	err = s.Bookings().UpdateBookingStatus(ctx, uuid.New(), domain.BookingConfirmed, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := s.Bookings().GetBooking(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, got.Status)
}

func TestListBookingsFiltersAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	roomID := seedRoom(t, s)

	a := newBooking(roomID, "SFAAAAAAAA", 1, 3)
	a.GuestName = "Mario Rossi"
	a.CreatedAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newBooking(roomID, "SFBBBBBBBB", 5, 7)
	b.GuestEmail = "anna@example.com"
	b.CreatedAt = a.CreatedAt.Add(time.Hour)
	require.NoError(t, s.Bookings().InsertBooking(ctx, a))
	require.NoError(t, s.Bookings().InsertBooking(ctx, b))

	all, err := s.Bookings().ListBookings(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")

	found, err := s.Bookings().ListBookings(ctx, domain.BookingFilter{Search: "rossi"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	found, err = s.Bookings().ListBookings(ctx, domain.BookingFilter{CheckInGTE: domain.NewDate(2030, 1, 4)})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, b.ID, found[0].ID)

	found, err = s.Bookings().ListBookings(ctx, domain.BookingFilter{Offset: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)
}

func TestListRoomsSortsAndFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for _, r := range []domain.Room{
		{Name: "Casale", Type: domain.RoomFarmhouse, Capacity: 6, PricePerNight: 30000, IsAvailable: true},
		{Name: "Singola", Type: domain.RoomSingle, Capacity: 1, PricePerNight: 8000, IsAvailable: true},
		{Name: "Chiusa", Type: domain.RoomSingle, Capacity: 1, PricePerNight: 7000, IsAvailable: false},
	} {
		room := r
		require.NoError(t, s.Rooms().CreateRoom(ctx, &room))
	}

	rooms, err := s.Rooms().ListRooms(ctx, domain.RoomFilter{})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Singola", rooms[0].Name)

	rooms, err = s.Rooms().ListRooms(ctx, domain.RoomFilter{Sort: domain.SortCapacity})
	require.NoError(t, err)
	assert.Equal(t, "Casale", rooms[0].Name)

	bad := &domain.Room{Name: "x", Capacity: 0}
	assert.ErrorIs(t, s.Rooms().CreateRoom(ctx, bad), domain.ErrRoomCapacity)
}
