package executor

import (
	"context"

	"github.com/goliatone/go-txcache/cache"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// ResultHandler receives rows one at a time instead of materializing them.
type ResultHandler func(row Row) error

// Cursor iterates over query results lazily.
type Cursor interface {
	Next(ctx context.Context) bool
	Row() Row
	Err() error
	Close() error
}

// Executor is the statement execution layer. An Executor is bound to one
// session and therefore to at most one physical transaction at a time.
type Executor interface {
	// Query runs a select. When handler is non-nil rows are streamed to it
	// and the returned slice is nil.
	Query(ctx context.Context, st *Statement, params any, bounds RowBounds, handler ResultHandler) ([]Row, error)
	QueryCursor(ctx context.Context, st *Statement, params any, bounds RowBounds) (Cursor, error)
	// Update runs an insert, update or delete and returns the affected row count.
	Update(ctx context.Context, st *Statement, params any) (int64, error)
	CreateCacheKey(st *Statement, params any, bounds RowBounds) cache.Key
	// Commit finalizes the physical transaction. When required is false the
	// transaction carries no writes.
	Commit(ctx context.Context, required bool) error
	Rollback(ctx context.Context, required bool) error
	Close(ctx context.Context, forceRollback bool) error
	IsClosed() bool
}
