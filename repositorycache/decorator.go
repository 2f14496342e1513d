package repositorycache

import (
	"context"
	"io"
	"log/slog"
	"slices"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-txcache/cache"
	"github.com/goliatone/go-txcache/txcache"
	"github.com/uptrace/bun"
)

// Interface assertion to ensure CachedRepository implements Repository[T]
var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// plainReadManagerID labels the short-lived managers of plain reads in logs.
const plainReadManagerID = "plain-read"

// listResult wraps the tuple result from List operations for caching. The
// cached Records slice is never handed to callers; they get a copy.
type listResult[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// Option configures a CachedRepository.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for swallowed cache failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// CachedRepository decorates a base repository with a transactional cache.
//
// Plain reads go through a short-lived cache manager that publishes as soon as
// the read succeeds. *Tx reads and writes use the manager attached to the
// context by WithTransaction or RunInTx, so nothing they do reaches the shared
// cache before the transaction commits.
type CachedRepository[T any] struct {
	base          repository.Repository[T]
	cache         cache.Cache
	keySerializer cache.KeySerializer
	logger        *slog.Logger
}

// New creates a new CachedRepository that wraps the base repository with caching
func New[T any](base repository.Repository[T], c cache.Cache, keySerializer cache.KeySerializer, opts ...Option) *CachedRepository[T] {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	if keySerializer == nil {
		keySerializer = cache.NewDefaultKeySerializer()
	}
	return &CachedRepository[T]{
		base:          base,
		cache:         c,
		keySerializer: keySerializer,
		logger:        o.logger.With("cache", c.ID()),
	}
}

// Get retrieves a single record using the provided criteria, with caching
func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	key := c.keySerializer.SerializeKey("Get", criteria)
	return cachedRead(ctx, c, key, func(ctx context.Context) (T, error) {
		return c.base.Get(ctx, criteria...)
	})
}

// GetByID retrieves a record by ID with optional criteria, with caching
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	key := c.keySerializer.SerializeKey("GetByID", id, criteria)
	return cachedRead(ctx, c, key, func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id, criteria...)
	})
}

// List retrieves multiple records using the provided criteria, with caching
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	key := c.keySerializer.SerializeKey("List", criteria)
	res, err := cachedRead(ctx, c, key, func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.base.List(ctx, criteria...)
		return listResult[T]{Records: records, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return slices.Clone(res.Records), res.Total, nil
}

// Count returns the number of records matching the criteria, with caching
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	key := c.keySerializer.SerializeKey("Count", criteria)
	return cachedRead(ctx, c, key, func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, criteria...)
	})
}

// GetByIdentifier retrieves a record by identifier with optional criteria, with caching
func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	key := c.keySerializer.SerializeKey("GetByIdentifier", identifier, criteria)
	return cachedRead(ctx, c, key, func(ctx context.Context) (T, error) {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	})
}

// GetTx retrieves a single record within a transaction, through the
// transaction's cache manager when one is attached to ctx
func (c *CachedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	key := c.keySerializer.SerializeKey("Get", criteria)
	return txRead(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		return c.base.GetTx(ctx, tx, criteria...)
	})
}

// GetByIDTx retrieves a record by ID within a transaction
func (c *CachedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	key := c.keySerializer.SerializeKey("GetByID", id, criteria)
	return txRead(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		return c.base.GetByIDTx(ctx, tx, id, criteria...)
	})
}

// ListTx retrieves multiple records within a transaction
func (c *CachedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	key := c.keySerializer.SerializeKey("List", criteria)
	res, err := txRead(ctx, c.cache, key, func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.base.ListTx(ctx, tx, criteria...)
		return listResult[T]{Records: records, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return slices.Clone(res.Records), res.Total, nil
}

// CountTx returns the number of records matching the criteria within a transaction
func (c *CachedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	key := c.keySerializer.SerializeKey("Count", criteria)
	return txRead(ctx, c.cache, key, func(ctx context.Context) (int, error) {
		return c.base.CountTx(ctx, tx, criteria...)
	})
}

// GetByIdentifierTx retrieves a record by identifier within a transaction
func (c *CachedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	key := c.keySerializer.SerializeKey("GetByIdentifier", identifier, criteria)
	return txRead(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		return c.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
	})
}

// Create creates a new record and invalidates the cache
func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.Create(ctx, record, criteria...)
	c.invalidateAfterWrite(ctx, false, err)
	return result, err
}

// CreateTx creates a new record within a transaction
func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	buffered := c.invalidateInTx(ctx)
	result, err := c.base.CreateTx(ctx, tx, record, criteria...)
	c.invalidateAfterWrite(ctx, buffered, err)
	return result, err
}

// CreateMany creates multiple records
func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateMany(ctx, records, criteria...)
	c.invalidateAfterWrite(ctx, false, err)
	return result, err
}

// CreateManyTx creates multiple records within a transaction
func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	buffered := c.invalidateInTx(ctx)
	result, err := c.base.CreateManyTx(ctx, tx, records, criteria...)
	c.invalidateAfterWrite(ctx, buffered, err)
	return result, err
}

// GetOrCreate gets a record or creates it if it doesn't exist
func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	result, err := c.base.GetOrCreate(ctx, record)
	c.invalidateAfterWrite(ctx, false, err)
	return result, err
}

// GetOrCreateTx gets a record or creates it if it doesn't exist within a transaction
func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	buffered := c.invalidateInTx(ctx)
	result, err := c.base.GetOrCreateTx(ctx, tx, record)
	c.invalidateAfterWrite(ctx, buffered, err)
	return result, err
}

// Update updates a record
func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Update(ctx, record, criteria...)
	c.invalidateAfterWrite(ctx, false, err)
	return result, err
}

// UpdateTx updates a record within a transaction
func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	buffered := c.invalidateInTx(ctx)
	result, err := c.base.UpdateTx(ctx, tx, record, criteria...)
	c.invalidateAfterWrite(ctx, buffered, err)
	return result, err
}

// UpdateMany updates multiple records
func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateMany(ctx, records, criteria...)
	c.invalidateAfterWrite(ctx, false, err)
	return result, err
}

// UpdateManyTx updates multiple records within a transaction
func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	buffered := c.invalidateInTx(ctx)
	result, err := c.base.UpdateManyTx(ctx, tx, records, criteria...)
	c.invalidateAfterWrite(ctx, buffered, err)
	return result, err
}

// Upsert inserts or updates a record
func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Upsert(ctx, record, criteria...)
	c.invalidateAfterWrite(ctx, false, err)
	return result, err
}

// UpsertTx inserts or updates a record within a transaction
func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	buffered := c.invalidateInTx(ctx)
	result, err := c.base.UpsertTx(ctx, tx, record, criteria...)
	c.invalidateAfterWrite(ctx, buffered, err)
	return result, err
}

// UpsertMany inserts or updates multiple records
func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertMany(ctx, records, criteria...)
	c.invalidateAfterWrite(ctx, false, err)
	return result, err
}

// UpsertManyTx inserts or updates multiple records within a transaction
func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	buffered := c.invalidateInTx(ctx)
	result, err := c.base.UpsertManyTx(ctx, tx, records, criteria...)
	c.invalidateAfterWrite(ctx, buffered, err)
	return result, err
}

// Delete deletes a record
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	err := c.base.Delete(ctx, record)
	c.invalidateAfterWrite(ctx, false, err)
	return err
}

// DeleteTx deletes a record within a transaction
func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	buffered := c.invalidateInTx(ctx)
	err := c.base.DeleteTx(ctx, tx, record)
	c.invalidateAfterWrite(ctx, buffered, err)
	return err
}

// DeleteMany deletes multiple records based on criteria
func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteMany(ctx, criteria...)
	c.invalidateAfterWrite(ctx, false, err)
	return err
}

// DeleteManyTx deletes multiple records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	buffered := c.invalidateInTx(ctx)
	err := c.base.DeleteManyTx(ctx, tx, criteria...)
	c.invalidateAfterWrite(ctx, buffered, err)
	return err
}

// DeleteWhere deletes records based on criteria
func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteWhere(ctx, criteria...)
	c.invalidateAfterWrite(ctx, false, err)
	return err
}

// DeleteWhereTx deletes records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	buffered := c.invalidateInTx(ctx)
	err := c.base.DeleteWhereTx(ctx, tx, criteria...)
	c.invalidateAfterWrite(ctx, buffered, err)
	return err
}

// ForceDelete force deletes a record (bypassing soft delete)
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	err := c.base.ForceDelete(ctx, record)
	c.invalidateAfterWrite(ctx, false, err)
	return err
}

// ForceDeleteTx force deletes a record within a transaction (bypassing soft delete)
func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	buffered := c.invalidateInTx(ctx)
	err := c.base.ForceDeleteTx(ctx, tx, record)
	c.invalidateAfterWrite(ctx, buffered, err)
	return err
}

// Raw executes a raw SQL query and returns the results. Raw results are never cached.
func (c *CachedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return c.base.Raw(ctx, sql, args...)
}

// RawTx executes a raw SQL query within a transaction and returns the results
func (c *CachedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return c.base.RawTx(ctx, tx, sql, args...)
}

// Handlers returns the model handlers from the base repository
func (c *CachedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return c.base.Handlers()
}

// invalidateInTx clears the cache for the rest of the transaction attached to
// ctx. It reports false when there is none.
func (c *CachedRepository[T]) invalidateInTx(ctx context.Context) bool {
	tm := ManagerFrom(ctx)
	if tm == nil {
		return false
	}
	tm.Clear(ctx, c.cache)
	return true
}

// invalidateAfterWrite clears the shared cache once an unbuffered write succeeded.
func (c *CachedRepository[T]) invalidateAfterWrite(ctx context.Context, buffered bool, err error) {
	if buffered || err != nil {
		return
	}
	if cerr := c.cache.Clear(ctx); cerr != nil {
		c.logger.Warn("cache invalidation failed", "error", cerr)
	}
}

// cachedRead serves a plain read through a manager of its own, committed as
// soon as the fetch succeeds.
func cachedRead[V any, T any](ctx context.Context, c *CachedRepository[T], key cache.Key, fetch func(context.Context) (V, error)) (V, error) {
	tm := txcache.NewManager(txcache.WithID(plainReadManagerID), txcache.WithLogger(c.logger))
	value, err := readThrough(ctx, tm, c.cache, key, fetch)
	if err != nil {
		tm.Rollback(ctx)
		return value, err
	}
	if cerr := tm.Commit(ctx); cerr != nil {
		c.logger.Warn("cache publish failed", "error", cerr)
	}
	return value, nil
}

// txRead serves a *Tx read through the manager attached to ctx, or straight
// from fetch when there is none.
func txRead[V any](ctx context.Context, c cache.Cache, key cache.Key, fetch func(context.Context) (V, error)) (V, error) {
	tm := ManagerFrom(ctx)
	if tm == nil {
		return fetch(ctx)
	}
	return readThrough(ctx, tm, c, key, fetch)
}

func readThrough[V any](ctx context.Context, tm *txcache.Manager, c cache.Cache, key cache.Key, fetch func(context.Context) (V, error)) (V, error) {
	if cached, ok := tm.Get(ctx, c, key); ok {
		if value, ok := cached.(V); ok {
			return value, nil
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	tm.Put(ctx, c, key, value)
	return value, nil
}
