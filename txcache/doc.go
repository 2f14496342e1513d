// Package txcache makes a shared, long-lived cache transactional.
//
// A Manager belongs to exactly one transaction. Reads, writes and clears for
// an underlying cache.Cache are routed to a TransactionalCache that shadows it
// for the lifetime of the transaction:
//
//	tcm := txcache.NewManager()
//	if v, ok := tcm.Get(ctx, users, key); ok {
//		return v
//	}
//	v := load()
//	tcm.Put(ctx, users, key, v) // not visible to other transactions yet
//
//	// after the data source committed:
//	err := tcm.Commit(ctx)
//	// or, after it rolled back:
//	tcm.Rollback(ctx)
//
// Commit makes buffered results visible, applies a pending Clear first, and
// writes a no-value marker for every key that missed without being produced.
// Rollback discards buffered results and asks the underlying cache to remove
// each missed key, ignoring failures. Either way, a blocking cache that locked
// a key on miss receives exactly one release for it.
//
// There is no atomicity across different underlying caches.
package txcache
