package kv

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// instrumented logs store operations slower than a threshold and every
// backend failure other than a miss.
type instrumented struct {
	store     Store
	logger    zerolog.Logger
	threshold time.Duration
}

// WithLogging decorates store with slow-operation and failure logging.
// A zero threshold disables slow-operation logging.
func WithLogging(store Store, logger *zerolog.Logger, backend string, threshold time.Duration) Store {
	return &instrumented{
		store:     store,
		logger:    logger.With().Str("component", "kv").Str("backend", backend).Logger(),
		threshold: threshold,
	}
}

func (i *instrumented) observe(op, key string, start time.Time, err error) {
	elapsed := time.Since(start)

	if err != nil && !errors.Is(err, ErrNotFound) {
		i.logger.Error().Err(err).Str("op", op).Str("key", LogKey(key)).Dur("duration", elapsed).Msg("kv operation failed")
		return
	}
	if i.threshold > 0 && elapsed > i.threshold {
		i.logger.Warn().Str("op", op).Str("key", LogKey(key)).Dur("duration", elapsed).Msg("slow kv operation")
	}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := i.store.Get(ctx, key)
	i.observe("get", key, start, err)
	return v, err
}

func (i *instrumented) Put(ctx context.Context, key string, value []byte, expireAt time.Time) error {
	start := time.Now()
	err := i.store.Put(ctx, key, value, expireAt)
	i.observe("put", key, start, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.store.Delete(ctx, key)
	i.observe("delete", key, start, err)
	return err
}

func (i *instrumented) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := i.store.Exists(ctx, key)
	i.observe("exists", key, start, err)
	return ok, err
}

func (i *instrumented) PurgeExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := i.store.PurgeExpired(ctx)
	i.observe("purge", "", start, err)
	return n, err
}

func (i *instrumented) Ping(ctx context.Context) error {
	return i.store.Ping(ctx)
}
