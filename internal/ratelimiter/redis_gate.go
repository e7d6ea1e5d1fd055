package ratelimiter

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// minPoll bounds how often a blocked RedisGate re-checks the shared key.
const minPoll = 10 * time.Millisecond

// RedisGate is an interval gate shared by every replica that points at the
// same redis key: a slot is the right to SET the key with a TTL of interval.
type RedisGate struct {
	c        redis.UniversalClient
	key      string
	interval time.Duration
}

func NewRedisGate(c redis.UniversalClient, key string, interval time.Duration) *RedisGate {
	return &RedisGate{c: c, key: key, interval: interval}
}

func (g *RedisGate) Wait(ctx context.Context) error {
	if g.interval <= 0 {
		return ctx.Err()
	}
	for {
		ok, err := g.c.SetNX(ctx, g.key, time.Now().UnixNano(), g.interval).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return errors.Wrap(err, "redis pacer acquire")
		}
		if ok {
			return nil
		}

		ttl, err := g.c.PTTL(ctx, g.key).Result()
		if err != nil {
			return errors.Wrap(err, "redis pacer ttl")
		}
		if ttl < minPoll {
			ttl = minPoll
		}
		timer := time.NewTimer(ttl)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
