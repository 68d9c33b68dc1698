package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/santafilomena/staycore/internal/domain"
)

type RoomRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *RoomRepo) With(db DB) *RoomRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *RoomRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const roomColumns = `id, name, room_type, description, capacity, price_per_night_cents,
	size_sqm, bed_type, floor, view, amenities, is_available, is_featured, created_at, updated_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var (
		room     domain.Room
		roomType string
		price    int64
	)

	err := row.Scan(
		&room.ID, &room.Name, &roomType, &room.Description, &room.Capacity, &price,
		&room.SizeSqm, &room.BedType, &room.Floor, &room.View, &room.Amenities,
		&room.IsAvailable, &room.IsFeatured, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	room.Type = domain.RoomType(roomType)
	room.PricePerNight = domain.Money(price)

	return &room, nil
}

// GetRoom retrieves a room by its ID.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - id: unique identifier of the room.
//
// Returns:
//   - *domain.Room: the room when found.
//   - error: repository.ErrNotFound if the room does not exist.
func (r *RoomRepo) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	const op = "postgres.RoomRepo.GetRoom"

	room, err := scanRoom(r.handle().QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return room, nil
}

var roomOrder = map[domain.RoomSort]string{
	domain.SortPriceAsc:  "price_per_night_cents ASC, id",
	domain.SortPriceDesc: "price_per_night_cents DESC, id",
	domain.SortCapacity:  "capacity DESC, id",
	domain.SortName:      "name ASC, id",
}

// buildRoomQuery renders the listing query for filter. Only available rooms are returned.
func buildRoomQuery(filter domain.RoomFilter) (string, []any) {
	where := []string{"is_available"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Type != "" {
		where = append(where, "room_type = "+arg(string(filter.Type)))
	}
	if filter.MinCapacity > 0 {
		where = append(where, "capacity >= "+arg(filter.MinCapacity))
	}
	if filter.MinPrice != nil {
		where = append(where, "price_per_night_cents >= "+arg(filter.MinPrice.Cents()))
	}
	if filter.MaxPrice != nil {
		where = append(where, "price_per_night_cents <= "+arg(filter.MaxPrice.Cents()))
	}
	if filter.FeaturedOnly {
		where = append(where, "is_featured")
	}

	order, ok := roomOrder[filter.Sort]
	if !ok {
		order = roomOrder[domain.SortPriceAsc]
	}

	q := `SELECT ` + roomColumns + ` FROM rooms WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + order
	if filter.Limit > 0 {
		q += " LIMIT " + arg(filter.Limit)
	}

	return q, args
}

func (r *RoomRepo) ListRooms(ctx context.Context, filter domain.RoomFilter) ([]domain.Room, error) {
	const op = "postgres.RoomRepo.ListRooms"

	q, args := buildRoomQuery(filter)

	rows, err := r.handle().Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	defer rows.Close()

	out := make([]domain.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		out = append(out, *room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// CreateRoom inserts a room and fills in its ID and timestamps.
func (r *RoomRepo) CreateRoom(ctx context.Context, room *domain.Room) error {
	const op = "postgres.RoomRepo.CreateRoom"

	if err := room.Validate(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	now := time.Now().UTC()

	err := r.handle().QueryRow(ctx,
		`INSERT INTO rooms (name, room_type, description, capacity, price_per_night_cents,
		                    size_sqm, bed_type, floor, view, amenities, is_available, is_featured,
		                    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		 RETURNING id`,
		room.Name, string(room.Type), room.Description, room.Capacity, room.PricePerNight.Cents(),
		room.SizeSqm, room.BedType, room.Floor, room.View, room.Amenities, room.IsAvailable, room.IsFeatured,
		now,
	).Scan(&room.ID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	room.CreatedAt = now
	room.UpdatedAt = now

	return nil
}
