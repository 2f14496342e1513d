package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"

	"github.com/goliatone/go-txcache/cache"
	"github.com/goliatone/go-txcache/executor"
	"github.com/uptrace/bun"
)

// Interface assertion to ensure Executor implements executor.Executor
var _ executor.Executor = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithEnvironment sets the environment id folded into every cache key, so
// two databases never share cached results.
func WithEnvironment(env string) Option {
	return func(e *Executor) {
		e.environment = env
	}
}

// WithKeySerializer replaces the default cache key serializer.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(e *Executor) {
		if serializer != nil {
			e.serializer = serializer
		}
	}
}

// WithTxOptions sets the options used to begin the physical transaction.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(e *Executor) {
		e.txOptions = opts
	}
}

// WithLogger sets the logger used for statement tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Executor runs statements against a bun database inside a single,
// lazily started transaction. It is not safe for concurrent use.
type Executor struct {
	db          *bun.DB
	tx          bun.Tx
	inTx        bool
	dirty       bool
	closed      bool
	environment string
	serializer  cache.KeySerializer
	txOptions   *sql.TxOptions
	logger      *slog.Logger
}

// New creates an executor over db.
func New(db *bun.DB, opts ...Option) *Executor {
	e := &Executor{
		db:          db,
		environment: "default",
		serializer:  cache.NewDefaultKeySerializer(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query runs a select inside the transaction.
func (e *Executor) Query(ctx context.Context, st *executor.Statement, params any, bounds executor.RowBounds, handler executor.ResultHandler) ([]executor.Row, error) {
	ctx = statementContext(ctx, st, "querying")

	rows, err := e.query(ctx, st, params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out, err := collect(ctx, e.db, rows, bounds, handler)
	if err != nil {
		return nil, executor.NewExecutionError(ctx, err)
	}
	return out, nil
}

// QueryCursor runs a select and returns a cursor over its rows. The cursor
// must be closed before the transaction ends.
func (e *Executor) QueryCursor(ctx context.Context, st *executor.Statement, params any, bounds executor.RowBounds) (executor.Cursor, error) {
	ctx = statementContext(ctx, st, "opening cursor")

	rows, err := e.query(ctx, st, params)
	if err != nil {
		return nil, err
	}

	return newRowCursor(e.db, rows, bounds), nil
}

// Update runs an insert, update or delete and reports the affected rows.
func (e *Executor) Update(ctx context.Context, st *executor.Statement, params any) (int64, error) {
	if e.closed {
		return 0, executor.ErrExecutorClosed
	}
	ctx = statementContext(ctx, st, "updating")

	query, args, err := bind(st.SQL, params)
	if err != nil {
		return 0, executor.NewExecutionError(ctx, err)
	}
	tx, err := e.transaction(ctx)
	if err != nil {
		return 0, executor.NewExecutionError(ctx, err)
	}

	e.logger.Debug("exec", "statement", st.ID, "args", len(args))
	e.dirty = true

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, executor.NewExecutionError(ctx, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, executor.NewExecutionError(ctx, err)
	}
	return affected, nil
}

// CreateCacheKey identifies one execution of st for the cache.
func (e *Executor) CreateCacheKey(st *executor.Statement, params any, bounds executor.RowBounds) cache.Key {
	return cache.NewStatementKey(e.serializer, st.ID, bounds.Offset, bounds.Limit, st.SQL, params, e.environment)
}

// Commit ends the transaction. It is committed when required or when this
// executor wrote through it, and rolled back otherwise.
func (e *Executor) Commit(ctx context.Context, required bool) error {
	if e.closed {
		return executor.ErrExecutorClosed
	}
	if !e.inTx {
		return nil
	}

	tx := e.tx
	commit := required || e.dirty
	e.endTx()

	if commit {
		e.logger.Debug("commit")
		return tx.Commit()
	}
	return tx.Rollback()
}

// Rollback discards the transaction if one is open.
func (e *Executor) Rollback(ctx context.Context, required bool) error {
	if e.closed {
		return executor.ErrExecutorClosed
	}
	if !e.inTx {
		return nil
	}

	tx := e.tx
	e.endTx()

	e.logger.Debug("rollback", "required", required)
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// Close rolls back any open transaction and marks the executor closed.
// Closing twice is a no-op.
func (e *Executor) Close(ctx context.Context, forceRollback bool) error {
	if e.closed {
		return nil
	}
	err := e.Rollback(ctx, forceRollback)
	e.closed = true
	return err
}

// IsClosed reports whether Close was called.
func (e *Executor) IsClosed() bool {
	return e.closed
}

func (e *Executor) query(ctx context.Context, st *executor.Statement, params any) (*sql.Rows, error) {
	if e.closed {
		return nil, executor.ErrExecutorClosed
	}

	query, args, err := bind(st.SQL, params)
	if err != nil {
		return nil, executor.NewExecutionError(ctx, err)
	}
	tx, err := e.transaction(ctx)
	if err != nil {
		return nil, executor.NewExecutionError(ctx, err)
	}

	e.logger.Debug("query", "statement", st.ID, "args", len(args))

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, executor.NewExecutionError(ctx, err)
	}
	return rows, nil
}

func (e *Executor) transaction(ctx context.Context) (bun.Tx, error) {
	if e.inTx {
		return e.tx, nil
	}
	tx, err := e.db.BeginTx(ctx, e.txOptions)
	if err != nil {
		return bun.Tx{}, err
	}
	e.tx = tx
	e.inTx = true
	return tx, nil
}

func (e *Executor) endTx() {
	e.tx = bun.Tx{}
	e.inTx = false
	e.dirty = false
}

func statementContext(ctx context.Context, st *executor.Statement, activity string) context.Context {
	return executor.WithErrorContext(ctx, executor.ErrorContext{
		Activity: activity,
		Object:   st.ID,
		SQL:      st.SQL,
	})
}
