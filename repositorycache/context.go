package repositorycache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goliatone/go-txcache/txcache"
	"github.com/uptrace/bun"
)

type managerContextKey struct{}

// WithTransaction attaches the cache manager of an in-flight transaction to
// the context. *Tx methods of a CachedRepository use it to buffer reads and
// defer invalidation until the manager is committed.
func WithTransaction(ctx context.Context, tm *txcache.Manager) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if tm == nil {
		return ctx
	}
	return context.WithValue(ctx, managerContextKey{}, tm)
}

// ManagerFrom returns the cache manager attached by WithTransaction, or nil.
func ManagerFrom(ctx context.Context) *txcache.Manager {
	if ctx == nil {
		return nil
	}
	tm, _ := ctx.Value(managerContextKey{}).(*txcache.Manager)
	return tm
}

// RunInTx runs fn inside a database transaction paired with a cache manager.
//
// The database transaction is committed first and the cache manager only if
// that succeeds. When fn fails or panics both are rolled back, the database
// transaction first; a panic is re-raised after cleanup.
func RunInTx(ctx context.Context, db bun.IDB, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error, managerOpts ...txcache.Option) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	tm := txcache.NewManager(managerOpts...)
	txCtx := WithTransaction(ctx, tm)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			tm.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(txCtx, tx); err != nil {
		rbErr := tx.Rollback()
		tm.Rollback(ctx)
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		tm.Rollback(ctx)
		return fmt.Errorf("commit transaction: %w", err)
	}
	return tm.Commit(ctx)
}
