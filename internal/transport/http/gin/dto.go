package httpgin

import (
	"github.com/santafilomena/staycore/internal/domain"
)

// CreateBookingRequest is the body of POST /bookings. Guest fields are checked
// by the booking service so every failure is reported at once.
type CreateBookingRequest struct {
	RoomID          int64       `json:"room_id" binding:"required,gt=0"`
	GuestName       string      `json:"guest_name"`
	GuestEmail      string      `json:"guest_email"`
	GuestPhone      string      `json:"guest_phone"`
	CheckIn         domain.Date `json:"check_in"`
	CheckOut        domain.Date `json:"check_out"`
	Guests          int         `json:"guests"`
	SpecialRequests string      `json:"special_requests"`
}

type CreateBookingResponse struct {
	Reference  string       `json:"reference"`
	Status     string       `json:"status"`
	Nights     int          `json:"nights"`
	TotalPrice domain.Money `json:"total_price"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ErrorBody struct {
	Kind    string        `json:"kind"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
