// Package storage provides key/value persistence for cart snapshots and
// recovery token markers. Callers treat the store as best-effort: a failed
// write degrades durability, never the request.
package storage

import (
	"context"
	"time"

	"github.com/mediaplace/payments/internal/errors"
)

// ErrKeyNotFound indicates the key is absent or expired.
var ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "key not found")

// KVStore is a minimal key/value store with per-key TTL.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores the value. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
	// SetIfAbsent stores the value only when the key does not exist. Returns
	// false when the key was already present.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}
