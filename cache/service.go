package cache

import (
	"context"

	"github.com/goliatone/go-txcache/internal/cacheinfra"
)

// Key is the deterministic fingerprint of one cacheable result: statement
// identity, row bounds, parameter values and environment. Keys compare by value.
type Key = cacheinfra.Key

// Cache is the capability an underlying, process-wide cache store exposes.
// Implementations are shared by every transaction and must be safe for
// concurrent use; they may themselves be decorators (eviction, locking).
//
// Put with a nil value records an explicit "no value" marker, which Get
// reports as absent.
type Cache interface {
	ID() string
	Get(ctx context.Context, key Key) (any, bool, error)
	Put(ctx context.Context, key Key, value any) error
	Remove(ctx context.Context, key Key) error
	Clear(ctx context.Context) error
	Size() int
}

// KeySerializer builds a cache key from a method or statement name plus arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) Key
}
