package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-txcache/cache"
)

var errDataSource = errors.New("data source failure")

// fakeExecutor serves canned rows per statement id and counts what reaches it.
type fakeExecutor struct {
	mu        sync.Mutex
	rows      map[string][]Row
	queries   int
	updates   int
	commits   []bool
	rollbacks []bool
	closed    bool

	queryErr  error
	commitErr error
	closeErr  error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{rows: make(map[string][]Row)}
}

func (f *fakeExecutor) Query(ctx context.Context, st *Statement, params any, bounds RowBounds, handler ResultHandler) ([]Row, error) {
	f.mu.Lock()
	f.queries++
	rows := f.rows[st.ID]
	err := f.queryErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if handler != nil {
		for _, row := range rows {
			if err := handler(row); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	return rows, nil
}

func (f *fakeExecutor) QueryCursor(ctx context.Context, st *Statement, params any, bounds RowBounds) (Cursor, error) {
	f.mu.Lock()
	f.queries++
	rows := f.rows[st.ID]
	f.mu.Unlock()
	return &sliceCursor{rows: rows, pos: -1}, nil
}

func (f *fakeExecutor) Update(ctx context.Context, st *Statement, params any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	return 1, nil
}

func (f *fakeExecutor) CreateCacheKey(st *Statement, params any, bounds RowBounds) cache.Key {
	return cache.NewStatementKey(nil, st.ID, bounds.Offset, bounds.Limit, st.SQL, params, "test")
}

func (f *fakeExecutor) Commit(ctx context.Context, required bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, required)
	return f.commitErr
}

func (f *fakeExecutor) Rollback(ctx context.Context, required bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollbacks = append(f.rollbacks, required)
	return nil
}

func (f *fakeExecutor) Close(ctx context.Context, forceRollback bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

func (f *fakeExecutor) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeExecutor) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

type sliceCursor struct {
	rows []Row
	pos  int
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	c.pos++
	return c.pos < len(c.rows)
}

func (c *sliceCursor) Row() Row     { return c.rows[c.pos] }
func (c *sliceCursor) Err() error   { return nil }
func (c *sliceCursor) Close() error { return nil }
