package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	redisx "github.com/santafilomena/staycore/internal/redis"
)

// RoomsPubSub tells every instance that a room's bookings changed so they can
// drop local and shared cache entries. A nil *RoomsPubSub publishes nothing.
type RoomsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewRoomsPubSub(rdb *redis.Client) *RoomsPubSub {
	if rdb == nil {
		return nil
	}

	return &RoomsPubSub{
		rdb:     rdb,
		channel: redisx.ChannelRoomsChanged(),
	}
}

type roomChangedMsg struct {
	Type   string `json:"type"`
	RoomID int64  `json:"room_id"`
	TsUnix int64  `json:"ts_unix"`
}

func (p *RoomsPubSub) PublishRoomChanged(ctx context.Context, roomID int64) error {
	if p == nil {
		return nil
	}

	msg := roomChangedMsg{
		Type:   "room_changed",
		RoomID: roomID,
		TsUnix: time.Now().Unix(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe calls handler for every room change until ctx is done.
func (p *RoomsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, roomID int64)) error {
	if p == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev roomChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.RoomID != 0 {
				handler(ctx, ev.RoomID)
			}
		}
	}
}
