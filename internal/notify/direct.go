package notify

import (
	"context"

	"github.com/santafilomena/staycore/internal/domain"
)

// Direct dispatches notifications in-process. It is used when no broker is configured.
type Direct struct {
	dispatcher *Dispatcher
}

func NewDirect(d *Dispatcher) *Direct {
	return &Direct{dispatcher: d}
}

func (n *Direct) NotifyBookingCreated(ctx context.Context, b domain.Booking, room domain.Room) error {
	return n.dispatcher.Dispatch(ctx, NewBookingCreated(b, room))
}
