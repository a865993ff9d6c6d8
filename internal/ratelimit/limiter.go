// Package ratelimit throttles mutating random-chat requests and punishes
// callers that exceed the limit.
package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript keeps one sorted-set member per accepted request,
// scored by its time in microseconds.
//
// KEYS[1] bucket, ARGV[1] now, ARGV[2] window, ARGV[3] limit, ARGV[4] member
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, math.ceil(window / 1000))
return 1
`)

// Limiter is a Redis sliding-window counter shared by every instance.
type Limiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
	seq    atomic.Uint64
}

func NewLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		prefix: prefix + "throttle:",
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records one request for key and reports whether it fits the window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now().UnixMicro()
	member := fmt.Sprintf("%d-%d", now, l.seq.Add(1))

	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{l.prefix + key},
		now, l.window.Microseconds(), l.limit, member,
	).Int()
	if err != nil {
		return false, fmt.Errorf("sliding window: %w", err)
	}
	return res == 1, nil
}

// Blocker keeps temporary address blocks as expiring Redis keys.
type Blocker struct {
	client *redis.Client
	prefix string
}

func NewBlocker(client *redis.Client, prefix string) *Blocker {
	return &Blocker{client: client, prefix: prefix + "blocked:addr:"}
}

func (b *Blocker) Block(ctx context.Context, addr string, d time.Duration) error {
	return b.client.Set(ctx, b.prefix+addr, "1", d).Err()
}

func (b *Blocker) IsBlocked(ctx context.Context, addr string) (bool, error) {
	n, err := b.client.Exists(ctx, b.prefix+addr).Result()
	return n > 0, err
}

func (b *Blocker) Unblock(ctx context.Context, addr string) error {
	return b.client.Del(ctx, b.prefix+addr).Err()
}
