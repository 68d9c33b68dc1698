package memory

import (
	"context"
	"sync"
)

// roomLocks is a set of per-room mutexes whose acquisition honours context
// cancellation. Locks on different rooms never contend.
type roomLocks struct {
	mu    sync.Mutex
	slots map[int64]chan struct{}
}

func newRoomLocks() *roomLocks {
	return &roomLocks{slots: make(map[int64]chan struct{})}
}

func (l *roomLocks) slot(roomID int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[roomID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[roomID] = ch
	}

	return ch
}

func (l *roomLocks) lock(ctx context.Context, roomID int64) error {
	select {
	case l.slot(roomID) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *roomLocks) unlock(roomID int64) {
	<-l.slot(roomID)
}
