// Package notify delivers booking notifications: it publishes booking events to
// RabbitMQ, consumes them in a background worker and turns them into the guest
// confirmation and the manager notice.
package notify

import (
	"time"

	"github.com/santafilomena/staycore/internal/domain"
)

// QueueBookingCreated is the durable queue carrying BookingCreated events.
const QueueBookingCreated = "booking.created"

// BookingCreated is the message published once a booking has been committed.
// It carries everything needed to write both emails, so the consumer never
// reads the database.
type BookingCreated struct {
	BookingID       string       `json:"booking_id"`
	Reference       string       `json:"reference"`
	Status          string       `json:"status"`
	RoomID          int64        `json:"room_id"`
	RoomName        string       `json:"room_name"`
	GuestName       string       `json:"guest_name"`
	GuestEmail      string       `json:"guest_email"`
	GuestPhone      string       `json:"guest_phone"`
	CheckIn         domain.Date  `json:"check_in"`
	CheckOut        domain.Date  `json:"check_out"`
	Nights          int          `json:"nights"`
	Guests          int          `json:"guests"`
	PricePerNight   domain.Money `json:"price_per_night"`
	TotalPrice      domain.Money `json:"total_price"`
	SpecialRequests string       `json:"special_requests,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

func NewBookingCreated(b domain.Booking, room domain.Room) BookingCreated {
	return BookingCreated{
		BookingID:       b.ID.String(),
		Reference:       b.Reference,
		Status:          string(b.Status),
		RoomID:          b.RoomID,
		RoomName:        room.Name,
		GuestName:       b.GuestName,
		GuestEmail:      b.GuestEmail,
		GuestPhone:      b.GuestPhone,
		CheckIn:         b.CheckIn,
		CheckOut:        b.CheckOut,
		Nights:          b.Nights(),
		Guests:          b.Guests,
		PricePerNight:   b.PricePerNight,
		TotalPrice:      b.TotalPrice,
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       b.CreatedAt,
	}
}
