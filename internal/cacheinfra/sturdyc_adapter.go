package cacheinfra

import (
	"context"

	"github.com/viccon/sturdyc"
)

// SturdycCache is a Store backed by a sharded sturdyc client.
type SturdycCache struct {
	id     string
	client *sturdyc.Client[any]
}

var _ Store = (*SturdycCache)(nil)

// NewSturdycCache creates a sturdyc-backed store.
// It validates the configuration and initializes a sturdyc client with the provided settings:
// Capacity, NumShards, TTL and EvictionPercentage are passed to sturdyc.New(),
// other options are applied via ToSturdycOptions().
func NewSturdycCache(id string, cfg Config) (*SturdycCache, error) {
	if id == "" {
		return nil, &ConfigError{Field: "ID", Message: "cannot be empty"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycCache{id: id, client: client}, nil
}

// ID returns the namespace this store serves.
func (s *SturdycCache) ID() string {
	return s.id
}

// Get returns the value stored for key. Negative markers and expired entries
// are reported as absent.
func (s *SturdycCache) Get(ctx context.Context, key Key) (any, bool, error) {
	value, ok := s.client.Get(string(key))
	value, ok = decodeValue(value, ok)
	return value, ok, nil
}

// Put stores value under key. A nil value stores a negative marker.
func (s *SturdycCache) Put(ctx context.Context, key Key, value any) error {
	s.client.Set(string(key), encodeValue(value))
	return nil
}

// Remove deletes a single entry.
func (s *SturdycCache) Remove(ctx context.Context, key Key) error {
	s.client.Delete(string(key))
	return nil
}

// Clear deletes every entry currently held by the client.
func (s *SturdycCache) Clear(ctx context.Context) error {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
	return nil
}

// Size returns the number of entries, negative markers included.
func (s *SturdycCache) Size() int {
	return s.client.Size()
}
