package cacheinfra

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// lruStore is the subset shared by the plain and expirable LRU caches.
type lruStore interface {
	Get(key Key) (any, bool)
	Add(key Key, value any) bool
	Remove(key Key) bool
	Purge()
	Len() int
}

// LRUCache is a Store backed by a fixed-capacity LRU. When the config carries
// a TTL the expirable variant is used.
type LRUCache struct {
	id    string
	store lruStore
}

var _ Store = (*LRUCache)(nil)

// NewLRUCache creates an LRU-backed store holding at most cfg.Capacity entries.
func NewLRUCache(id string, cfg Config) (*LRUCache, error) {
	if id == "" {
		return nil, &ConfigError{Field: "ID", Message: "cannot be empty"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.TTL > 0 {
		return &LRUCache{id: id, store: expirable.NewLRU[Key, any](cfg.Capacity, nil, cfg.TTL)}, nil
	}

	store, err := lru.New[Key, any](cfg.Capacity)
	if err != nil {
		return nil, &ConfigError{Field: "Capacity", Message: err.Error()}
	}
	return &LRUCache{id: id, store: store}, nil
}

// ID returns the namespace this store serves.
func (l *LRUCache) ID() string {
	return l.id
}

// Get returns the value stored for key, treating negative markers as absent.
func (l *LRUCache) Get(ctx context.Context, key Key) (any, bool, error) {
	value, ok := decodeValue(l.store.Get(key))
	return value, ok, nil
}

// Put stores value under key, evicting the least recently used entry when full.
func (l *LRUCache) Put(ctx context.Context, key Key, value any) error {
	l.store.Add(key, encodeValue(value))
	return nil
}

// Remove deletes a single entry.
func (l *LRUCache) Remove(ctx context.Context, key Key) error {
	l.store.Remove(key)
	return nil
}

// Clear purges every entry.
func (l *LRUCache) Clear(ctx context.Context) error {
	l.store.Purge()
	return nil
}

// Size returns the number of entries, negative markers included.
func (l *LRUCache) Size() int {
	return l.store.Len()
}
