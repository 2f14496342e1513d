// Package repositorycache provides a transactional cached repository decorator for go-repository-bun.
//
// # Overview
//
// CachedRepository[T] wraps a base repository.Repository[T] and puts the
// transactional second-level cache in front of its read methods. It is a
// drop-in replacement for the base repository.
//
// # Basic Usage
//
//	users, _ := cache.New("users", cache.DefaultConfig())
//	cached := repositorycache.New(baseRepo, users, cache.NewDefaultKeySerializer())
//
//	user, err := cached.GetByID(ctx, "user-123")
//
// # Plain Operations
//
// Get, GetByID, GetByIdentifier, List and Count read through a short-lived
// cache manager: a hit is served from the cache, a miss is fetched from the
// base repository and published once the fetch succeeds. Fetch errors are
// never cached.
//
// Create, Update, Upsert, Delete and their variants clear the repository's
// cache after the base call succeeds.
//
// # Transactions
//
// The *Tx methods look for a cache manager attached with WithTransaction.
// RunInTx attaches one for the duration of a bun transaction:
//
//	err := repositorycache.RunInTx(ctx, db, nil, func(ctx context.Context, tx bun.Tx) error {
//		user, err := cached.GetByIDTx(ctx, tx, "user-123")
//		if err != nil {
//			return err
//		}
//		user.Name = "renamed"
//		_, err = cached.UpdateTx(ctx, tx, user)
//		return err
//	})
//
// Inside the transaction:
//   - reads are buffered, so the transaction sees its own results but nobody
//     else does until commit
//   - writes hide the cache from the transaction and clear it for everyone at
//     commit
//   - a rollback discards every buffered entry
//
// Without an attached manager *Tx reads go straight to the base repository
// and *Tx writes clear the cache after success, like plain writes.
//
// Raw and RawTx are never cached.
//
// # Key Strategy
//
// Keys are built by the configured cache.KeySerializer from the method name
// and its arguments. Criteria functions are keyed by pointer, which is stable
// only within one process.
package repositorycache
