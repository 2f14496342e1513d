package cacheinfra

import (
	"context"
	"errors"
)

// Key identifies a cached result. The public cache package re-exports it.
type Key string

// Store is the capability every underlying cache adapter in this package
// implements. It mirrors cache.Cache so adapters can be handed out directly.
type Store interface {
	ID() string
	Get(ctx context.Context, key Key) (any, bool, error)
	Put(ctx context.Context, key Key, value any) error
	Remove(ctx context.Context, key Key) error
	Clear(ctx context.Context) error
	Size() int
}

// ErrLockTimeout is returned by a blocking store when a key lock could not be
// acquired within the configured timeout.
var ErrLockTimeout = errors.New("timed out waiting for cache key lock")

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// negative is stored in place of a nil value. It records that a committed
// transaction confirmed the key has no result.
type negative struct{}

func encodeValue(value any) any {
	if value == nil {
		return negative{}
	}
	return value
}

func decodeValue(value any, ok bool) (any, bool) {
	if !ok {
		return nil, false
	}
	if _, isNegative := value.(negative); isNegative {
		return nil, false
	}
	return value, true
}
