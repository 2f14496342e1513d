package cache

import (
	"time"

	"github.com/goliatone/go-txcache/internal/cacheinfra"
)

// Backend names an underlying store implementation.
type Backend = cacheinfra.Backend

const (
	BackendSturdyc = cacheinfra.BackendSturdyc
	BackendLRU     = cacheinfra.BackendLRU
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend            Backend
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EarlyRefresh       *EarlyRefreshConfig
	EvictionInterval   time.Duration
	Blocking           bool
	BlockingTimeout    time.Duration
	// MaxKeyLength compacts longer keys to a hash; zero keeps keys verbatim.
	MaxKeyLength int
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if c.MaxKeyLength < 0 {
		return &ConfigError{Field: "MaxKeyLength", Message: "must be non-negative"}
	}
	return c.toInternal().Validate()
}

// New constructs the underlying cache for one namespace using the provided configuration.
func New(id string, cfg Config) (Cache, error) {
	if cfg.MaxKeyLength < 0 {
		return nil, &ConfigError{Field: "MaxKeyLength", Message: "must be non-negative"}
	}
	store, err := cacheinfra.New(id, cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewBlocking wraps c so that a miss locks the key until a value or a release
// is written for it. A zero timeout waits for the lock indefinitely.
func NewBlocking(c Cache, timeout time.Duration) Cache {
	return cacheinfra.NewBlockingCache(c, timeout)
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	return cacheinfra.Config{
		Backend:            c.Backend,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   c.EvictionInterval,
		Blocking:           c.Blocking,
		BlockingTimeout:    c.BlockingTimeout,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return Config{
		Backend:            cfg.Backend,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   cfg.EvictionInterval,
		Blocking:           cfg.Blocking,
		BlockingTimeout:    cfg.BlockingTimeout,
	}
}
