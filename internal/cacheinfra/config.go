package cacheinfra

import (
	"errors"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Backend names an underlying store implementation.
type Backend string

const (
	// BackendSturdyc stores entries in a sharded sturdyc client with TTLs.
	BackendSturdyc Backend = "sturdyc"
	// BackendLRU stores entries in a fixed-capacity LRU.
	BackendLRU Backend = "lru"
)

// Config holds the configuration for one underlying cache store.
type Config struct {
	// Backend selects the store implementation. Empty means BackendSturdyc.
	Backend Backend

	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Only used by the sturdyc backend. Default: 256
	NumShards int

	// TTL is the default time-to-live for cached entries.
	// Required by the sturdyc backend; optional for LRU where zero disables expiry.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Only used by the sturdyc backend. Default: 10
	EvictionPercentage int

	// EarlyRefresh configures early refresh behavior for cached entries.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration

	// Blocking wraps the store so that a miss locks the key until the
	// transaction that observed it publishes a value or releases it.
	Blocking bool

	// BlockingTimeout bounds how long a reader waits for a locked key.
	// Zero waits until the lock is released or the context is done.
	BlockingTimeout time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendSturdyc,
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		EvictionInterval: 0, // Use default
	}
}

func (c Config) backend() Backend {
	if c.Backend == "" {
		return BackendSturdyc
	}
	return c.Backend
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
// The first failing field, in alphabetical order, is reported as a *ConfigError.
func (c Config) Validate() error {
	sturdycBackend := c.backend() == BackendSturdyc

	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.In(BackendSturdyc, BackendLRU).Error("must be one of sturdyc, lru")),
		validation.Field(&c.Capacity, validation.Required.Error("must be greater than 0"), validation.Min(1).Error("must be greater than 0")),
		validation.Field(&c.NumShards, validation.When(sturdycBackend,
			validation.Required.Error("must be greater than 0"), validation.Min(1).Error("must be greater than 0"))),
		validation.Field(&c.TTL,
			validation.When(sturdycBackend, validation.Required.Error("must be greater than 0")),
			validation.Min(time.Duration(0)).Error("must be non-negative")),
		validation.Field(&c.EvictionPercentage, validation.When(sturdycBackend,
			validation.Required.Error("must be between 1 and 100"),
			validation.Min(1).Error("must be between 1 and 100"),
			validation.Max(100).Error("must be between 1 and 100"))),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0)).Error("must be non-negative")),
		validation.Field(&c.BlockingTimeout, validation.Min(time.Duration(0)).Error("must be non-negative")),
	)
	if err != nil {
		return toConfigError(err)
	}

	if c.EarlyRefresh != nil {
		if c.EarlyRefresh.MinAsyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.MinAsyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.MaxAsyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.MaxAsyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.SyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.SyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.RetryBaseDelay < 0 {
			return &ConfigError{Field: "EarlyRefresh.RetryBaseDelay", Message: "must be non-negative"}
		}
	}

	return nil
}

func toConfigError(err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fields := make([]string, 0, len(fieldErrs))
	for field := range fieldErrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	first := fields[0]
	return &ConfigError{Field: first, Message: fieldErrs[first].Error()}
}
