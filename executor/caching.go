package executor

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/goliatone/go-txcache/cache"
	"github.com/goliatone/go-txcache/txcache"
)

// Interface assertion to ensure CachingExecutor implements Executor
var _ Executor = (*CachingExecutor)(nil)

// CachingOption configures a CachingExecutor.
type CachingOption func(*CachingExecutor)

// WithLogger sets the logger passed down to the transactional cache manager.
func WithLogger(logger *slog.Logger) CachingOption {
	return func(e *CachingExecutor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithManagerID sets the transaction id reported by the cache manager.
func WithManagerID(id string) CachingOption {
	return func(e *CachingExecutor) {
		e.managerID = id
	}
}

// CachingExecutor decorates an Executor with the second-level cache. Reads
// that hit the cache never reach the delegate; writes to the cache are held
// by a txcache.Manager until the physical transaction commits.
type CachingExecutor struct {
	delegate  Executor
	tcm       *txcache.Manager
	logger    *slog.Logger
	managerID string
}

// NewCaching wraps delegate.
func NewCaching(delegate Executor, opts ...CachingOption) *CachingExecutor {
	e := &CachingExecutor{
		delegate: delegate,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	managerOpts := []txcache.Option{txcache.WithLogger(e.logger)}
	if e.managerID != "" {
		managerOpts = append(managerOpts, txcache.WithID(e.managerID))
	}
	e.tcm = txcache.NewManager(managerOpts...)
	return e
}

// Manager exposes the transaction's cache manager.
func (e *CachingExecutor) Manager() *txcache.Manager {
	return e.tcm
}

// Query serves cacheable selects from the transaction's view of the
// statement cache, falling through to the delegate on a miss and buffering
// the result for commit.
func (e *CachingExecutor) Query(ctx context.Context, st *Statement, params any, bounds RowBounds, handler ResultHandler) ([]Row, error) {
	if e.IsClosed() {
		return nil, ErrExecutorClosed
	}

	c := st.Cache
	if c == nil {
		return e.delegate.Query(ctx, st, params, bounds, handler)
	}

	e.flushCacheIfRequired(ctx, st)

	if !st.UseCache || handler != nil {
		return e.delegate.Query(ctx, st, params, bounds, handler)
	}

	if err := ensureNoOutParams(st); err != nil {
		return nil, err
	}

	key := e.delegate.CreateCacheKey(st, params, bounds)
	if cached, ok := e.tcm.Get(ctx, c, key); ok {
		if rows, ok := cached.([]Row); ok {
			return cloneRows(rows), nil
		}
	}

	rows, err := e.delegate.Query(ctx, st, params, bounds, nil)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Row{}
	}

	e.tcm.Put(ctx, c, key, cloneRows(rows))
	return rows, nil
}

// QueryCursor flushes the statement cache when configured to and always
// delegates; cursors are never cached.
func (e *CachingExecutor) QueryCursor(ctx context.Context, st *Statement, params any, bounds RowBounds) (Cursor, error) {
	if e.IsClosed() {
		return nil, ErrExecutorClosed
	}
	e.flushCacheIfRequired(ctx, st)
	return e.delegate.QueryCursor(ctx, st, params, bounds)
}

// Update invalidates the statement cache for the rest of the transaction and
// delegates.
func (e *CachingExecutor) Update(ctx context.Context, st *Statement, params any) (int64, error) {
	if e.IsClosed() {
		return 0, ErrExecutorClosed
	}
	e.flushCacheIfRequired(ctx, st)
	return e.delegate.Update(ctx, st, params)
}

// CreateCacheKey delegates key construction.
func (e *CachingExecutor) CreateCacheKey(st *Statement, params any, bounds RowBounds) cache.Key {
	return e.delegate.CreateCacheKey(st, params, bounds)
}

// Commit commits the physical transaction first. The buffered cache writes
// are published only if that succeeds; otherwise they are rolled back.
func (e *CachingExecutor) Commit(ctx context.Context, required bool) error {
	if err := e.delegate.Commit(ctx, required); err != nil {
		e.tcm.Rollback(ctx)
		return err
	}
	return e.tcm.Commit(ctx)
}

// Rollback rolls back the physical transaction and then the cache buffers,
// even if the former fails.
func (e *CachingExecutor) Rollback(ctx context.Context, required bool) error {
	defer e.tcm.Rollback(ctx)
	return e.delegate.Rollback(ctx, required)
}

// Close closes the delegate and settles the cache buffers: they are rolled
// back when forceRollback is set or closing failed, committed otherwise.
func (e *CachingExecutor) Close(ctx context.Context, forceRollback bool) error {
	err := e.delegate.Close(ctx, forceRollback)
	if forceRollback || err != nil {
		e.tcm.Rollback(ctx)
		return err
	}
	return e.tcm.Commit(ctx)
}

// IsClosed reports whether the delegate is closed.
func (e *CachingExecutor) IsClosed() bool {
	return e.delegate.IsClosed()
}

func (e *CachingExecutor) flushCacheIfRequired(ctx context.Context, st *Statement) {
	if st.Cache != nil && st.FlushCacheRequired {
		e.tcm.Clear(ctx, st.Cache)
	}
}

// cloneRows copies rows and their byte slice values so callers never share
// memory with a cached result.
func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		copied := make(Row, len(row))
		for column, value := range row {
			if b, ok := value.([]byte); ok {
				value = bytes.Clone(b)
			}
			copied[column] = value
		}
		out[i] = copied
	}
	return out
}

func ensureNoOutParams(st *Statement) error {
	if st.Callable && st.HasOutParams() {
		return &ConfigurationError{
			StatementID: st.ID,
			Message:     "caching stored procedures with OUT params is not supported, set useCache=false",
		}
	}
	return nil
}
