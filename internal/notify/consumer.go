package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Consumer reads booking.created and hands every event to a Dispatcher.
type Consumer struct {
	url        string
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewConsumer(url string, dispatcher *Dispatcher, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Consumer{url: url, dispatcher: dispatcher, logger: logger}
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff
// whenever the broker is unreachable or closes the delivery stream.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := minBackoff

	for {
		conn, err := amqp.DialConfig(c.url, dialConfig(ctx))
		if err != nil {
			c.logger.WarnContext(ctx, "booking consumer: dial failed",
				slog.Any("err", err),
				slog.Duration("retry_in", backoff),
			)
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}

		c.logger.WarnContext(ctx, "booking consumer: reconnecting", slog.Any("err", err))
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	if err := declareQueue(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries, err := ch.Consume(QueueBookingCreated, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.logger.InfoContext(ctx, "booking consumer started", slog.String("queue", QueueBookingCreated))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	c.ack(ctx, d, d.Body, d.Redelivered)
}

// ack handles one message. Undecodable messages are dropped; a failed
// dispatch is requeued once and dropped on redelivery.
func (c *Consumer) ack(ctx context.Context, a acknowledger, body []byte, redelivered bool) {
	err := c.handle(ctx, body)
	if err == nil {
		_ = a.Ack(false)
		return
	}

	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	requeue := !redelivered && !errors.As(err, &syntax) && !errors.As(err, &typ)

	c.logger.ErrorContext(ctx, "booking consumer: handle message failed",
		slog.Any("err", err),
		slog.Bool("requeue", requeue),
	)
	_ = a.Nack(false, requeue)
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev BookingCreated
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	return c.dispatcher.Dispatch(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
