package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santafilomena/staycore/internal/domain"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	fail map[string]error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail[msg.To]; err != nil {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAck) Ack(bool) error {
	a.acked = true
	return nil
}

func (a *fakeAck) Nack(_, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func sampleEvent() BookingCreated {
	b := domain.Booking{
		ID:              uuid.MustParse("5b0f3c1e-7d4a-4f0e-9a51-2f1c8d9e0a11"),
		Reference:       "SFAB12CD34",
		RoomID:          3,
		GuestName:       "Giulia Rossi",
		GuestEmail:      "giulia@example.com",
		GuestPhone:      "+39 333 1234567",
		CheckIn:         domain.NewDate(2024, 7, 1),
		CheckOut:        domain.NewDate(2024, 7, 4),
		Guests:          2,
		PricePerNight:   12050,
		TotalPrice:      36150,
		Status:          domain.BookingPending,
		SpecialRequests: "Culla in camera",
	}
	return NewBookingCreated(b, domain.Room{ID: 3, Name: "Camera Panoramica"})
}

func TestNewBookingCreated(t *testing.T) {
	ev := sampleEvent()

	assert.Equal(t, "5b0f3c1e-7d4a-4f0e-9a51-2f1c8d9e0a11", ev.BookingID)
	assert.Equal(t, "Camera Panoramica", ev.RoomName)
	assert.Equal(t, 3, ev.Nights)
	assert.Equal(t, "pending", ev.Status)
}

func TestGuestConfirmation(t *testing.T) {
	msg := GuestConfirmation(sampleEvent())

	assert.Equal(t, "giulia@example.com", msg.To)
	assert.Equal(t, "Conferma prenotazione SFAB12CD34", msg.Subject)
	assert.Contains(t, msg.Body, "Gentile Giulia Rossi")
	assert.Contains(t, msg.Body, "Check-in    : 01 July 2024")
	assert.Contains(t, msg.Body, "Check-out   : 04 July 2024")
	assert.Contains(t, msg.Body, "Prezzo/notte: €120.50")
	assert.Contains(t, msg.Body, "Totale      : €361.50")
	assert.Contains(t, msg.Body, "Richieste   : Culla in camera")
}

func TestManagerNotification(t *testing.T) {
	ev := sampleEvent()
	ev.SpecialRequests = ""

	msg := ManagerNotification(ev, "direzione@example.com")

	assert.Equal(t, "direzione@example.com", msg.To)
	assert.Equal(t, "[Nuova Prenotazione] SFAB12CD34 - Giulia Rossi", msg.Subject)
	assert.Contains(t, msg.Body, "Telefono    : +39 333 1234567")
	assert.Contains(t, msg.Body, "Check-in    : 2024-07-01")
	assert.Contains(t, msg.Body, "Notti       : 3")
	assert.NotContains(t, msg.Body, "Richieste")
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("sends both", func(t *testing.T) {
		m := &recordingMailer{}
		require.NoError(t, NewDispatcher(m, "direzione@example.com", nil).Dispatch(ctx, sampleEvent()))
		require.Len(t, m.sent, 2)
		assert.Equal(t, "giulia@example.com", m.sent[0].To)
		assert.Equal(t, "direzione@example.com", m.sent[1].To)
	})

	t.Run("no manager address", func(t *testing.T) {
		m := &recordingMailer{}
		require.NoError(t, NewDispatcher(m, "", nil).Dispatch(ctx, sampleEvent()))
		assert.Len(t, m.sent, 1)
	})

	t.Run("manager failure is swallowed", func(t *testing.T) {
		m := &recordingMailer{fail: map[string]error{"direzione@example.com": errors.New("smtp down")}}
		require.NoError(t, NewDispatcher(m, "direzione@example.com", nil).Dispatch(ctx, sampleEvent()))
		assert.Len(t, m.sent, 1)
	})

	t.Run("guest failure is returned", func(t *testing.T) {
		boom := errors.New("smtp down")
		m := &recordingMailer{fail: map[string]error{"giulia@example.com": boom}}
		err := NewDispatcher(m, "direzione@example.com", nil).Dispatch(ctx, sampleEvent())
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, m.sent)
	})
}

func TestDirectNotifier(t *testing.T) {
	m := &recordingMailer{}
	n := NewDirect(NewDispatcher(m, "", nil))

	err := n.NotifyBookingCreated(context.Background(),
		domain.Booking{Reference: "SF00000001", GuestEmail: "a@b.it", CheckIn: domain.NewDate(2024, 1, 1), CheckOut: domain.NewDate(2024, 1, 2)},
		domain.Room{Name: "Singola"},
	)
	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].Body, "Camera      : Singola")
}

func TestEncode(t *testing.T) {
	ev := sampleEvent()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	msg, err := encode(ev, now)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, ev.BookingID, msg.MessageId)
	assert.Equal(t, now, msg.Timestamp)

	var got BookingCreated
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, ev.Reference, got.Reference)
	assert.Equal(t, ev.CheckOut, got.CheckOut)
	assert.Equal(t, ev.TotalPrice, got.TotalPrice)
}

func TestConsumerAck(t *testing.T) {
	ctx := context.Background()
	body, err := json.Marshal(sampleEvent())
	require.NoError(t, err)

	t.Run("ack on success", func(t *testing.T) {
		m := &recordingMailer{}
		c := NewConsumer("", NewDispatcher(m, "", nil), nil)
		a := &fakeAck{}

		c.ack(ctx, a, body, false)

		assert.True(t, a.acked)
		assert.Len(t, m.sent, 1)
	})

	t.Run("malformed is dropped", func(t *testing.T) {
		c := NewConsumer("", NewDispatcher(&recordingMailer{}, "", nil), nil)
		a := &fakeAck{}

		c.ack(ctx, a, []byte("{not json"), false)

		assert.True(t, a.nacked)
		assert.False(t, a.requeue)
	})

	t.Run("failure requeued once", func(t *testing.T) {
		m := &recordingMailer{fail: map[string]error{"giulia@example.com": errors.New("smtp down")}}
		c := NewConsumer("", NewDispatcher(m, "", nil), nil)

		first := &fakeAck{}
		c.ack(ctx, first, body, false)
		assert.True(t, first.requeue)

		second := &fakeAck{}
		c.ack(ctx, second, body, true)
		assert.True(t, second.nacked)
		assert.False(t, second.requeue)
	})
}

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) (url string, accepted <-chan struct{}) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ch := make(chan struct{}, 16)
	var conns []net.Conn
	var mu sync.Mutex

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
			ch <- struct{}{}
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	return "amqp://guest:guest@" + ln.Addr().String() + "/", ch
}

func TestPublishGivesUpWithContext(t *testing.T) {
	ev := BookingCreated{BookingID: uuid.NewString(), Reference: "SFABCD1234"}

	t.Run("handshake bounded by deadline", func(t *testing.T) {
		url, _ := silentBroker(t)
		p := NewAMQPPublisher(url, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := p.Publish(ctx, ev)
		require.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("waiters do not queue behind a stuck dial", func(t *testing.T) {
		url, accepted := silentBroker(t)
		p := NewAMQPPublisher(url, nil)

		slow, cancelSlow := context.WithTimeout(context.Background(), 700*time.Millisecond)
		defer cancelSlow()

		done := make(chan error, 1)
		go func() { done <- p.Publish(slow, ev) }()

		select {
		case <-accepted:
		case <-time.After(5 * time.Second):
			t.Fatal("publisher never dialed")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := p.Publish(ctx, ev)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 500*time.Millisecond)

		assert.Error(t, <-done)
	})
}
