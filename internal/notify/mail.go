package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const longDateLayout = "02 January 2006"

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "email",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)

	return nil
}

// GuestConfirmation renders the confirmation sent to the guest.
func GuestConfirmation(ev BookingCreated) Message {
	var b strings.Builder

	fmt.Fprintf(&b, "Gentile %s,\n\n", ev.GuestName)
	fmt.Fprintf(&b, "grazie per aver scelto il nostro hotel. La sua prenotazione %s è stata registrata.\n\n", ev.Reference)
	fmt.Fprintf(&b, "Camera      : %s\n", ev.RoomName)
	fmt.Fprintf(&b, "Check-in    : %s\n", ev.CheckIn.Time().Format(longDateLayout))
	fmt.Fprintf(&b, "Check-out   : %s\n", ev.CheckOut.Time().Format(longDateLayout))
	fmt.Fprintf(&b, "Notti       : %d\n", ev.Nights)
	fmt.Fprintf(&b, "Ospiti      : %d\n", ev.Guests)
	fmt.Fprintf(&b, "Prezzo/notte: €%s\n", ev.PricePerNight)
	fmt.Fprintf(&b, "Totale      : €%s\n", ev.TotalPrice)
	if ev.SpecialRequests != "" {
		fmt.Fprintf(&b, "Richieste   : %s\n", ev.SpecialRequests)
	}
	b.WriteString("\nLa prenotazione è in attesa di conferma da parte della struttura.\n")

	return Message{
		To:      ev.GuestEmail,
		Subject: fmt.Sprintf("Conferma prenotazione %s", ev.Reference),
		Body:    b.String(),
	}
}

// ManagerNotification renders the notice sent to the hotel manager.
func ManagerNotification(ev BookingCreated, to string) Message {
	var b strings.Builder

	b.WriteString("Nuova prenotazione ricevuta.\n\n")
	fmt.Fprintf(&b, "Riferimento : %s\n", ev.Reference)
	fmt.Fprintf(&b, "Ospite      : %s\n", ev.GuestName)
	fmt.Fprintf(&b, "Email       : %s\n", ev.GuestEmail)
	fmt.Fprintf(&b, "Telefono    : %s\n", ev.GuestPhone)
	fmt.Fprintf(&b, "Camera      : %s\n", ev.RoomName)
	fmt.Fprintf(&b, "Check-in    : %s\n", ev.CheckIn)
	fmt.Fprintf(&b, "Check-out   : %s\n", ev.CheckOut)
	fmt.Fprintf(&b, "Notti       : %d\n", ev.Nights)
	fmt.Fprintf(&b, "Ospiti      : %d\n", ev.Guests)
	fmt.Fprintf(&b, "Totale      : €%s\n", ev.TotalPrice)
	if ev.SpecialRequests != "" {
		fmt.Fprintf(&b, "Richieste   : %s\n", ev.SpecialRequests)
	}

	return Message{
		To:      to,
		Subject: fmt.Sprintf("[Nuova Prenotazione] %s - %s", ev.Reference, ev.GuestName),
		Body:    b.String(),
	}
}

// Dispatcher sends both emails for a booking event.
type Dispatcher struct {
	mailer       Mailer
	managerEmail string
	logger       *slog.Logger
}

// NewDispatcher returns a Dispatcher. An empty managerEmail skips the manager notice.
func NewDispatcher(mailer Mailer, managerEmail string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{mailer: mailer, managerEmail: managerEmail, logger: logger}
}

// Dispatch sends the guest confirmation and then the manager notice.
//
// Only the guest confirmation can fail the call; a failed manager notice is
// logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, ev BookingCreated) error {
	const op = "notify.Dispatcher.Dispatch"

	if err := d.mailer.Send(ctx, GuestConfirmation(ev)); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if d.managerEmail == "" {
		return nil
	}

	if err := d.mailer.Send(ctx, ManagerNotification(ev, d.managerEmail)); err != nil {
		d.logger.WarnContext(ctx, "manager notification failed",
			slog.String("reference", ev.Reference),
			slog.Any("err", err),
		)
	}

	return nil
}
