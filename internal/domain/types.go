package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RoomType string

const (
	RoomSingle      RoomType = "singola"
	RoomTwin        RoomType = "doppia"
	RoomDouble      RoomType = "matrimoniale"
	RoomJuniorSuite RoomType = "junior_suite"
	RoomPanoramic   RoomType = "panoramica"
	RoomFarmhouse   RoomType = "casale"
)

func (t RoomType) Valid() bool {
	switch t {
	case RoomSingle, RoomTwin, RoomDouble, RoomJuniorSuite, RoomPanoramic, RoomFarmhouse:
		return true
	}
	return false
}

type Amenities struct {
	Balcony     bool `json:"balcony"`
	Terrace     bool `json:"terrace"`
	AirCon      bool `json:"air_con"`
	Minibar     bool `json:"minibar"`
	Safe        bool `json:"safe"`
	Bathrobe    bool `json:"bathrobe"`
	PetFriendly bool `json:"pet_friendly"`
	Accessible  bool `json:"accessible"`
	NonSmoking  bool `json:"non_smoking"`
}

type Room struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Type          RoomType  `json:"room_type"`
	Description   string    `json:"description"`
	Capacity      int       `json:"capacity"`
	PricePerNight Money     `json:"price_per_night"`
	SizeSqm       *int      `json:"size_sqm,omitempty"`
	BedType       string    `json:"bed_type,omitempty"`
	Floor         *int      `json:"floor,omitempty"`
	View          string    `json:"view,omitempty"`
	Amenities     Amenities `json:"amenities"`
	IsAvailable   bool      `json:"is_available"`
	IsFeatured    bool      `json:"is_featured"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

var (
	ErrRoomCapacity = errors.New("room capacity must be at least 1")
	ErrRoomPrice    = errors.New("room price must not be negative")
)

func (r Room) Validate() error {
	if r.Capacity < 1 {
		return ErrRoomCapacity
	}

	if r.PricePerNight < 0 {
		return ErrRoomPrice
	}

	return nil
}

type RoomSort string

const (
	SortPriceAsc  RoomSort = "price_asc"
	SortPriceDesc RoomSort = "price_desc"
	SortCapacity  RoomSort = "capacity"
	SortName      RoomSort = "name"
)

// RoomFilter narrows the public room listing. Only available rooms are ever listed.
type RoomFilter struct {
	Type         RoomType `json:"room_type,omitempty"`
	MinCapacity  int      `json:"capacity,omitempty"`
	MinPrice     *Money   `json:"min_price,omitempty"`
	MaxPrice     *Money   `json:"max_price,omitempty"`
	FeaturedOnly bool     `json:"featured,omitempty"`
	Sort         RoomSort `json:"sort,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

// Match reports whether r passes every filter condition.
func (f RoomFilter) Match(r Room) bool {
	if !r.IsAvailable {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.MinCapacity > 0 && r.Capacity < f.MinCapacity {
		return false
	}
	if f.MinPrice != nil && r.PricePerNight < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && r.PricePerNight > *f.MaxPrice {
		return false
	}
	if f.FeaturedOnly && !r.IsFeatured {
		return false
	}
	return true
}

// CacheKey is a stable representation of the filter used to key cached listings.
func (f RoomFilter) CacheKey() string {
	money := func(m *Money) string {
		if m == nil {
			return "-"
		}
		return m.String()
	}
	sort := f.Sort
	if sort == "" {
		sort = SortPriceAsc
	}
	return fmt.Sprintf("t=%s|c=%d|min=%s|max=%s|f=%t|s=%s|l=%d",
		f.Type, f.MinCapacity, money(f.MinPrice), money(f.MaxPrice), f.FeaturedOnly, sort, f.Limit)
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// IsBlocking reports whether a booking in this status holds its room for its dates.
func (s BookingStatus) IsBlocking() bool {
	return s == BookingPending || s == BookingConfirmed
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// BlockingStatuses lists every status for which IsBlocking is true.
func BlockingStatuses() []BookingStatus {
	var out []BookingStatus
	for _, s := range []BookingStatus{BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted} {
		if s.IsBlocking() {
			out = append(out, s)
		}
	}
	return out
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown booking status %q", s)
	}
	return st, nil
}

type Booking struct {
	ID              uuid.UUID     `json:"id"`
	Reference       string        `json:"reference"`
	RoomID          int64         `json:"room_id"`
	GuestName       string        `json:"guest_name"`
	GuestEmail      string        `json:"guest_email"`
	GuestPhone      string        `json:"guest_phone"`
	CheckIn         Date          `json:"check_in"`
	CheckOut        Date          `json:"check_out"`
	Guests          int           `json:"guests"`
	PricePerNight   Money         `json:"price_per_night"`
	TotalPrice      Money         `json:"total_price"`
	Status          BookingStatus `json:"status"`
	SpecialRequests string        `json:"special_requests,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Nights is the length of the stay in days.
func (b Booking) Nights() int {
	return b.CheckIn.DaysUntil(b.CheckOut)
}

// IsUpcoming reports whether the stay has not started before today.
func (b Booking) IsUpcoming(today Date) bool {
	return !b.CheckIn.Before(today)
}

// Blocks reports whether b holds its room for any night of [checkIn, checkOut).
func (b Booking) Blocks(checkIn, checkOut Date) bool {
	return b.Status.IsBlocking() && Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut)
}

// Interval is a half-open stay on a room, used for occupancy views and conflict diagnostics.
type Interval struct {
	CheckIn  Date          `json:"check_in"`
	CheckOut Date          `json:"check_out"`
	Status   BookingStatus `json:"status"`
}

func (b Booking) Interval() Interval {
	return Interval{CheckIn: b.CheckIn, CheckOut: b.CheckOut, Status: b.Status}
}

// BookingFilter narrows the administrative booking listing.
type BookingFilter struct {
	Status     BookingStatus
	RoomID     int64
	CheckInGTE Date
	CheckInLT  Date
	Search     string
	Limit      int
	Offset     int
}
