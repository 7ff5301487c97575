package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kirinyoku/atelier/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// luaSetIfGeneration stores a loaded value only if no invalidation happened
// since the load started.
const luaSetIfGeneration = `
if (redis.call('GET', KEYS[2]) or '0') ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`

// Cache is a JSON read-through cache for public listings. The document store
// stays the source of truth, so Redis failures degrade to a direct load.
//
// Every key has a generation counter bumped on invalidation. A load that was
// already running when its key got invalidated is returned to its callers but
// never written back.
type Cache struct {
	rdb    *redis.Client
	sf     singleflight.Group
	setGen *redis.Script
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client, setGen: redis.NewScript(luaSetIfGeneration)}
}

func (c *Cache) getString(ctx context.Context, key string) (string, bool, error) {
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return s, true, nil
}

func (c *Cache) generation(ctx context.Context, key string) (string, error) {
	gen, ok, err := c.getString(ctx, KeyGeneration(key))
	if err != nil {
		return "", err
	}
	if !ok {
		return "0", nil
	}
	return gen, nil
}

// Del drops keys and bumps their generations.
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Incr(ctx, KeyGeneration(key))
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}

func getJSON[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T

	s, ok, err := c.getString(ctx, key)
	if err != nil || !ok {
		return zero, false
	}

	var out T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return zero, false
	}

	return out, true
}

func setJSON(ctx context.Context, c *Cache, key, gen string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.setGen.Run(ctx, c.rdb,
		[]string{key, KeyGeneration(key)},
		gen, b, ttl.Milliseconds(),
	).Err()
}

// GetOrSetJSON returns the cached value for key or loads, stores and returns
// it. Concurrent misses for the same key and generation share a single load.
// A nil cache always loads.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if c == nil {
		return loader(ctx)
	}

	if v, ok := getJSON[T](ctx, c, key); ok {
		return v, nil
	}

	gen, err := c.generation(ctx, key)
	if err != nil {
		return loader(ctx)
	}

	vAny, err, _ := c.sf.Do(key+"@"+gen, func() (any, error) {
		if v, ok := getJSON[T](ctx, c, key); ok {
			return v, nil
		}
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		_ = setJSON(ctx, c, key, gen, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, errors.New("type assertion failed")
	}

	return v, nil
}

// Invalidate drops the public read models that depend on kind.
func (c *Cache) Invalidate(ctx context.Context, kind domain.ChangeKind) error {
	switch kind {
	case domain.ChangeSlot:
		return c.Del(ctx, KeyPublicSlots())
	case domain.ChangeWorkshop:
		return c.Del(ctx, KeyPublicWorkshops())
	case domain.ChangeReview:
		return c.Del(ctx, KeyApprovedReviews())
	default:
		return nil
	}
}
