// Package kv provides the key/value storage backends behind links, users,
// assets and cached responses.
//
// Every backend honours per-key expiry: a value written with a non-zero
// expireAt is invisible once that instant has passed.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a key, prefix included.
const MaxKeyLength = 1024

// Sentinel errors for store operations.
var (
	ErrNotFound   = errors.New("kv: key not found")
	ErrInvalidKey = errors.New("kv: key is invalid")
)

// Store is the interface every backend implements.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Get returns ErrNotFound on a miss or an expired key.
//   - A zero expireAt means the value never expires.
//   - Delete is idempotent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, expireAt time.Time) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// PurgeExpired removes expired keys and reports how many were removed.
	// Backends that expire natively return 0.
	PurgeExpired(ctx context.Context) (int64, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// ValidateKey checks a key is non-empty, bounded and single-line.
func ValidateKey(key string) error {
	if key == "" || len(key) > MaxKeyLength {
		return fmt.Errorf("%w: length must be 1-%d bytes", ErrInvalidKey, MaxKeyLength)
	}
	if strings.ContainsAny(key, "\r\n") {
		return fmt.Errorf("%w: contains a line break", ErrInvalidKey)
	}
	return nil
}

// expired reports whether expireAt is set and not after now.
func expired(expireAt, now time.Time) bool {
	return !expireAt.IsZero() && !expireAt.After(now)
}
