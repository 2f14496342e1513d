// Package executor defines named statements and the Executor contract, and
// provides CachingExecutor, the decorator that puts a transactional
// second-level cache in front of any Executor.
//
// A CachingExecutor owns one txcache.Manager per session. Cacheable selects
// read through the manager; statements configured to flush clear their
// namespace cache for the rest of the transaction. Nothing reaches the shared
// cache until Commit succeeds on the physical transaction:
//
//	exec := executor.NewCaching(sqlExecutor)
//	rows, err := exec.Query(ctx, selectUser, map[string]any{"id": 7}, executor.NoRowBounds, nil)
//	...
//	err = exec.Commit(ctx, false)
package executor
