package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Deletes the key only while it still holds our token, so an expired lease
// taken over by another holder is never released by us.
const luaRelease = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

const (
	minLockBackoff = 5 * time.Millisecond
	maxLockBackoff = 100 * time.Millisecond
	releaseTimeout = 3 * time.Second
)

// LeaseLocker is a Redis lease lock shared by all replicas. A lease expires
// after ttl even if its holder dies.
type LeaseLocker struct {
	rdb     *redis.Client
	ttl     time.Duration
	maxWait time.Duration
	release *redis.Script
}

func NewLeaseLocker(rdb *redis.Client, ttl, maxWait time.Duration) *LeaseLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if maxWait <= 0 {
		maxWait = 5 * time.Second
	}

	return &LeaseLocker{
		rdb:     rdb,
		ttl:     ttl,
		maxWait: maxWait,
		release: redis.NewScript(luaRelease),
	}
}

func (l *LeaseLocker) Lock(ctx context.Context, names ...string) (func(), error) {
	const op = "redis.LeaseLocker.Lock"

	ctx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	token := uuid.NewString()
	held := make([]string, 0, len(names))

	unlock := func() {
		rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = l.release.Run(rctx, l.rdb, []string{held[i]}, token).Err()
		}
	}

	for _, name := range names {
		key := KeyLock(name)
		if err := l.acquire(ctx, key, token); err != nil {
			unlock()
			return nil, fmt.Errorf("%s: %s: %w", op, name, err)
		}
		held = append(held, key)
	}

	return unlock, nil
}

func (l *LeaseLocker) acquire(ctx context.Context, key, token string) error {
	backoff := minLockBackoff

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		backoff *= 2
		if backoff > maxLockBackoff {
			backoff = maxLockBackoff
		}
	}
}
