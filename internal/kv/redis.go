package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps values in Redis. Expiry is delegated to Redis itself
// through SET ... EXAT.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client. The caller owns the client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: redis get %q: %w", LogKey(key), err)
	}
	return value, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte, expireAt time.Time) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if expired(expireAt, time.Now()) {
		return r.Delete(ctx, key)
	}

	var err error
	if expireAt.IsZero() {
		err = r.client.Set(ctx, key, value, 0).Err()
	} else {
		err = r.client.SetArgs(ctx, key, value, redis.SetArgs{ExpireAt: expireAt}).Err()
	}
	if err != nil {
		return fmt.Errorf("kv: redis set %q: %w", LogKey(key), err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv: redis del %q: %w", LogKey(key), err)
	}
	return nil
}

func (r *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("kv: redis exists %q: %w", LogKey(key), err)
	}
	return n > 0, nil
}

func (r *RedisStore) PurgeExpired(context.Context) (int64, error) {
	return 0, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
