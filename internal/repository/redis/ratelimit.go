package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	redisx "github.com/santafilomena/staycore/internal/redis"
)

// admitScript keeps one sorted-set member per admitted hit, scored by its
// time in ms. Rejected hits are not recorded, so hammering a closed window
// does not push its reopening further out.
//
//	KEYS[1]  window key
//	ARGV     now_ms, window_ms, limit, member
//
// Returns {admitted (0|1), hits in window, ms until a slot frees up}.
var admitScript = redis.NewScript(`
local now, window, limit = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)

local hits = redis.call('ZCARD', KEYS[1])
if hits >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local wait = window
  if oldest[2] then
    wait = tonumber(oldest[2]) + window - now
  end
  return {0, hits, math.max(wait, 0)}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, hits + 1, 0}
`)

// Decision is the outcome of one rate-limited attempt.
type Decision struct {
	Allowed bool
	// Hits counts admitted attempts in the current window, this one included.
	Hits int64
	// RetryAfter is zero when Allowed.
	RetryAfter time.Duration
}

// SlidingWindowLimiter admits at most limit attempts per subject within any
// window-long span. A nil *SlidingWindowLimiter admits everything.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewSlidingWindowLimiter returns nil when rdb is nil or limit is not positive.
func NewSlidingWindowLimiter(
	rdb *redis.Client,
	scope string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	if rdb == nil || limit <= 0 {
		return nil
	}

	return &SlidingWindowLimiter{
		rdb:    rdb,
		prefix: redisx.KeyRateLimit(scope),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records an attempt by subject (e.g. "ip:1.2.3.4") if the window has room.
//
// Parameters:
//   - ctx: request-scoped context.
//   - subject: who is being limited.
//
// Returns:
//   - Decision: whether the attempt is admitted and, if not, how long to wait.
//   - error: if Redis fails or returns an unexpected reply.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, subject string) (Decision, error) {
	const op = "repository.redis.SlidingWindowLimiter.Allow"

	if l == nil {
		return Decision{Allowed: true}, nil
	}

	reply, err := admitScript.Run(
		ctx,
		l.rdb,
		[]string{l.prefix + ":" + subject},
		l.now().UnixMilli(), l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%s:%w", op, err)
	}

	if len(reply) != 3 {
		return Decision{}, fmt.Errorf("%s: unexpected reply %v", op, reply)
	}

	return Decision{
		Allowed:    reply[0] == 1,
		Hits:       reply[1],
		RetryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}
