package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/santafilomena/staycore/internal/domain"
)

// dialTimeout bounds connecting and the AMQP handshake when the caller's
// context has no deadline.
const dialTimeout = 30 * time.Second

// AMQPPublisher publishes BookingCreated events to the booking.created queue.
// The connection is opened lazily and reopened after the broker drops it.
type AMQPPublisher struct {
	url    string
	logger *slog.Logger

	// sem guards conn and ch. A channel lets waiters give up with their context.
	sem  chan struct{}
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string, logger *slog.Logger) *AMQPPublisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AMQPPublisher{url: url, logger: logger, sem: make(chan struct{}, 1)}
}

func (p *AMQPPublisher) NotifyBookingCreated(ctx context.Context, b domain.Booking, room domain.Room) error {
	return p.Publish(ctx, NewBookingCreated(b, room))
}

// Publish sends ev as a persistent JSON message.
//
// Parameters:
//   - ctx: bounds the publish.
//   - ev: event to publish.
//
// Returns:
//   - error: if the broker is unreachable or rejects the message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev BookingCreated) error {
	const op = "notify.AMQPPublisher.Publish"

	msg, err := encode(ev, time.Now())
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := p.lock(ctx); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	defer p.unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := ch.PublishWithContext(ctx, "", QueueBookingCreated, false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("%s:%w", op, err)
	}

	p.logger.DebugContext(ctx, "booking event published", slog.String("reference", ev.Reference))

	return nil
}

func encode(ev BookingCreated, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.BookingID,
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}

func (p *AMQPPublisher) lock(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AMQPPublisher) unlock() {
	<-p.sem
}

// channel returns an open channel, dialing if needed. Callers hold the lock.
func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.DialConfig(p.url, dialConfig(ctx))
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := declareQueue(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	p.conn, p.ch = conn, ch

	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) Close() error {
	p.sem <- struct{}{}
	defer p.unlock()

	p.reset()
	return nil
}

// dialConfig makes the TCP dial and the AMQP handshake end with ctx. The
// library clears the connection deadline once the handshake completes.
func dialConfig(ctx context.Context) amqp.Config {
	return amqp.Config{
		Locale: "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			deadline, ok := ctx.Deadline()
			if !ok {
				deadline = time.Now().Add(dialTimeout)
			}

			d := net.Dialer{Deadline: deadline}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}

			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}

			return conn, nil
		},
	}
}

func declareQueue(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		QueueBookingCreated,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	return err
}
