package redis

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock      = "LOCK"
	idemResultTag = "RES:"
)

// StoredResponse is a response replayed for a repeated Idempotency-Key.
type StoredResponse struct {
	Status int
	Body   []byte
}

// IdempotencyStore remembers the first response produced for a client key.
// While the first request is in flight the key holds a short-lived lock.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, status int, body []byte) error {
	val := idemResultTag + strconv.Itoa(status) + ":" + string(body)
	return s.rdb.Set(ctx, key, val, s.ttl).Err()
}

func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (StoredResponse, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return StoredResponse{}, false, nil
	}
	if err != nil {
		return StoredResponse{}, false, err
	}

	rest, ok := strings.CutPrefix(v, idemResultTag)
	if !ok {
		return StoredResponse{}, false, nil
	}

	code, body, ok := strings.Cut(rest, ":")
	if !ok {
		return StoredResponse{}, false, nil
	}
	status, err := strconv.Atoi(code)
	if err != nil {
		return StoredResponse{}, false, nil
	}

	return StoredResponse{Status: status, Body: []byte(body)}, true, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
