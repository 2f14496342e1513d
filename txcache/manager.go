package txcache

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-txcache/cache"
	"github.com/google/uuid"
)

// Manager owns the transactional caches of one in-flight transaction, one per
// underlying cache id. It is created with the transaction and driven to
// Commit or Rollback when the transaction ends, after which it can be reused.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	id     string
	caches map[string]*TransactionalCache
	logger *slog.Logger
}

// NewManager creates a manager with no buffers.
func NewManager(opts ...Option) *Manager {
	o := newOptions(opts)
	if o.id == "" {
		o.id = uuid.NewString()
	}
	return &Manager{
		id:     o.id,
		caches: make(map[string]*TransactionalCache),
		logger: o.logger.With("tx", o.id),
	}
}

// ID identifies the transaction in logs.
func (m *Manager) ID() string {
	return m.id
}

// Len returns the number of buffers created so far.
func (m *Manager) Len() int {
	return len(m.caches)
}

// Clear invalidates c for the rest of the transaction.
func (m *Manager) Clear(ctx context.Context, c cache.Cache) {
	m.transactionalCache(c).Clear(ctx)
}

// Get reads key through the transaction's view of c.
func (m *Manager) Get(ctx context.Context, c cache.Cache, key cache.Key) (any, bool) {
	return m.transactionalCache(c).Get(ctx, key)
}

// Put buffers value for key in c until Commit.
func (m *Manager) Put(ctx context.Context, c cache.Cache, key cache.Key, value any) {
	m.transactionalCache(c).Put(ctx, key, value)
}

// Commit commits every buffer. Each underlying cache is committed
// independently; the first failure is returned and the buffers not yet
// committed are rolled back instead, so none keeps writes or locks past the
// transaction.
func (m *Manager) Commit(ctx context.Context) error {
	var failed error
	for id, txCache := range m.caches {
		if failed != nil {
			txCache.Rollback(ctx)
			continue
		}
		if err := txCache.Commit(ctx); err != nil {
			m.logger.Error("transactional cache commit failed", "cache", id, "error", err)
			failed = err
		}
	}
	return failed
}

// Rollback rolls back every buffer.
func (m *Manager) Rollback(ctx context.Context) {
	for _, txCache := range m.caches {
		txCache.Rollback(ctx)
	}
}

func (m *Manager) transactionalCache(c cache.Cache) *TransactionalCache {
	id := c.ID()
	txCache, ok := m.caches[id]
	if !ok {
		txCache = New(c, WithLogger(m.logger))
		m.caches[id] = txCache
	}
	return txCache
}
