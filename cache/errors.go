package cache

import "github.com/goliatone/go-txcache/internal/cacheinfra"

// ConfigError represents a configuration validation error.
type ConfigError = cacheinfra.ConfigError

// ErrLockTimeout is returned by blocking caches when a key lock could not be
// acquired in time.
var ErrLockTimeout = cacheinfra.ErrLockTimeout
