package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/santafilomena/staycore/internal/domain"
	"github.com/santafilomena/staycore/internal/repository"
)

// defaultLockTimeout applies when LockRoom is called without a deadline.
const defaultLockTimeout = 5 * time.Second

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const bookingColumns = `id, reference, room_id, guest_name, guest_email, guest_phone,
	check_in, check_out, guests, price_per_night_cents, total_price_cents, status,
	special_requests, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b               domain.Booking
		checkIn         time.Time
		checkOut        time.Time
		price, total    int64
		status          string
		specialRequests *string
	)

	err := row.Scan(
		&b.ID, &b.Reference, &b.RoomID, &b.GuestName, &b.GuestEmail, &b.GuestPhone,
		&checkIn, &checkOut, &b.Guests, &price, &total, &status,
		&specialRequests, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.CheckIn = domain.DateOf(checkIn, time.UTC)
	b.CheckOut = domain.DateOf(checkOut, time.UTC)
	b.PricePerNight = domain.Money(price)
	b.TotalPrice = domain.Money(total)
	b.Status = domain.BookingStatus(status)
	if specialRequests != nil {
		b.SpecialRequests = *specialRequests
	}

	return &b, nil
}

func blockingStatuses() []string {
	statuses := domain.BlockingStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// LockRoom takes a row lock on the room until the surrounding transaction
// ends. The wait is bounded by ctx's deadline through lock_timeout.
//
// Parameters:
//   - ctx: context whose deadline bounds the wait.
//   - roomID: room to lock.
//
// Returns:
//   - error: repository.ErrNotFound if the room does not exist.
//   - error: repository.ErrLockTimeout if the lock was not granted in time.
func (r *BookingRepo) LockRoom(ctx context.Context, roomID int64) error {
	const op = "postgres.BookingRepo.LockRoom"

	db := r.handle()

	if r.db == nil {
		// Outside a transaction a lock would be released immediately.
		var id int64
		err := db.QueryRow(ctx, `SELECT id FROM rooms WHERE id = $1`, roomID).Scan(&id)
		if err != nil {
			return fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return nil
	}

	timeout := defaultLockTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout < time.Millisecond {
		return fmt.Errorf("%s:%w", op, repository.ErrLockTimeout)
	}

	if _, err := db.Exec(ctx,
		`SELECT set_config('lock_timeout', $1, true)`,
		fmt.Sprintf("%dms", timeout.Milliseconds()),
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	var id int64
	err := db.QueryRow(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, roomID).Scan(&id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s:%w", op, repository.ErrLockTimeout)
		}
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *BookingRepo) FindActiveBookings(
	ctx context.Context,
	roomID int64,
	excludeID uuid.UUID,
) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.FindActiveBookings"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		   FROM bookings
		  WHERE room_id = $1
		    AND status = ANY($2)
		    AND id <> $3
		  ORDER BY check_in`,
		roomID, blockingStatuses(), excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := collectBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *BookingRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	const op = "postgres.BookingRepo.ReferenceExists"

	var exists bool
	err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE reference = $1)`,
		reference,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return exists, nil
}

// InsertBooking stores b.
//
// A duplicate reference is reported without aborting the surrounding
// transaction, so the caller can retry with a fresh reference.
//
// Returns:
//   - error: repository.ErrConflict if the reference is taken.
//   - error: repository.ErrOverlap if an active booking covers part of the stay.
func (r *BookingRepo) InsertBooking(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.InsertBooking"

	var specialRequests *string
	if b.SpecialRequests != "" {
		specialRequests = &b.SpecialRequests
	}

	var id uuid.UUID
	err := r.handle().QueryRow(ctx,
		`INSERT INTO bookings (id, reference, room_id, guest_name, guest_email, guest_phone,
		                       check_in, check_out, guests, price_per_night_cents, total_price_cents,
		                       status, special_requests, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (reference) DO NOTHING
		 RETURNING id`,
		b.ID, b.Reference, b.RoomID, b.GuestName, b.GuestEmail, b.GuestPhone,
		b.CheckIn.Time(), b.CheckOut.Time(), b.Guests, b.PricePerNight.Cents(), b.TotalPrice.Cents(),
		string(b.Status), specialRequests, b.CreatedAt, b.UpdatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.GetBooking"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return b, nil
}

func (r *BookingRepo) GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.GetBookingByReference"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE reference = $1`,
		reference,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return b, nil
}

// buildBookingQuery renders the administrative listing query for filter.
func buildBookingQuery(filter domain.BookingFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if filter.RoomID != 0 {
		where = append(where, "room_id = "+arg(filter.RoomID))
	}
	if !filter.CheckInGTE.IsZero() {
		where = append(where, "check_in >= "+arg(filter.CheckInGTE.Time()))
	}
	if !filter.CheckInLT.IsZero() {
		where = append(where, "check_in < "+arg(filter.CheckInLT.Time()))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		p := arg("%" + escapeLike(s) + "%")
		where = append(where, "(reference ILIKE "+p+" OR guest_name ILIKE "+p+
			" OR guest_email ILIKE "+p+" OR guest_phone ILIKE "+p+")")
	}

	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, reference`

	if filter.Limit > 0 {
		q += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		q += " OFFSET " + arg(filter.Offset)
	}

	return q, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *BookingRepo) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListBookings"

	q, args := buildBookingQuery(filter)

	rows, err := r.handle().Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := collectBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// UpdateBookingStatus sets the status of a booking.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
//   - error: repository.ErrOverlap if re-activating it collides with another active booking.
func (r *BookingRepo) UpdateBookingStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.BookingStatus,
	at time.Time,
) error {
	const op = "postgres.BookingRepo.UpdateBookingStatus"

	tag, err := r.handle().Exec(ctx,
		`UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), at,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	out := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}

	return out, rows.Err()
}
