// Package cache provides the underlying cache capability and key serialization
// used by the transactional cache layer.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - Cache: the process-wide store {Get, Put, Remove, Clear, ID, Size}
//   - KeySerializer: builds stable cache keys from statement names and arguments
//
// A Cache is shared by every transaction. Transactions never write to it
// directly; they go through a txcache.Manager which buffers writes until the
// transaction outcome is known.
//
// # Basic Usage
//
//	users, err := cache.New("users", cache.DefaultConfig())
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("users.selectByID", 42)
//
// # Backends
//
// Config.Backend selects the store:
//
//   - BackendSturdyc (default): sharded sturdyc client with TTLs and early refresh
//   - BackendLRU: fixed-capacity LRU, expiring entries when TTL is set
//
// Setting Config.Blocking wraps the store so that a miss locks the key until
// the reader that missed publishes a value (Put) or gives up (Remove). The
// transactional layer guarantees exactly one of those per miss.
//
// # No-value markers
//
// Put with a nil value stores an explicit marker that Get reports as absent.
// Committing transactions use it to settle keys they looked up but never
// produced, which also releases any lock a blocking store holds for them.
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection to handle various Go types:
//
//   - Function pointers: Uses %p formatting for stability within a process
//   - Basic types: Direct string representation
//   - Slices/arrays: Recursive serialization of elements
//   - Maps: Sorted key-value pairs for deterministic output
//   - Structs: Exported fields with name:value pairs
//   - Opaque values (time.Time, structs without exported fields): msgpack with sorted map keys
//
// WithMaxKeyLength compacts long keys to an xxhash digest.
//
// # Important Warnings for Function Criteria
//
//   - Function pointers are stable only within a single process lifetime
//   - Closures with different captured variables will have different pointers
//   - For distributed caching, consider a custom KeySerializer that includes stable criteria names
package cache
