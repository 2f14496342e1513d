package txcache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-txcache/cache"
)

// TransactionalCache buffers the effects of one transaction on one underlying
// cache. Writes stay local until Commit; Rollback discards them.
//
// Every key that misses is remembered. Commit settles each such key with
// either the buffered value or a no-value marker, and Rollback asks the
// underlying cache to remove it, so a blocking store sees exactly one release
// per miss whatever the outcome.
//
// A TransactionalCache is not safe for concurrent use.
type TransactionalCache struct {
	delegate      cache.Cache
	clearOnCommit bool
	entriesToAdd  map[cache.Key]any
	entriesMissed map[cache.Key]struct{}
	logger        *slog.Logger
}

// New creates an empty buffer over delegate.
func New(delegate cache.Cache, opts ...Option) *TransactionalCache {
	o := newOptions(opts)
	return &TransactionalCache{
		delegate:      delegate,
		entriesToAdd:  make(map[cache.Key]any),
		entriesMissed: make(map[cache.Key]struct{}),
		logger:        o.logger,
	}
}

// ID returns the underlying cache id.
func (t *TransactionalCache) ID() string {
	return t.delegate.ID()
}

// Size returns the underlying cache size. Buffered entries are not counted.
func (t *TransactionalCache) Size() int {
	return t.delegate.Size()
}

// Get returns the value visible to this transaction. After Clear nothing is
// visible until the buffer is reset. A buffered Put shadows the underlying
// cache. Underlying errors are logged and treated as misses, but the key is
// not remembered: a failed read holds no lock this transaction may release.
func (t *TransactionalCache) Get(ctx context.Context, key cache.Key) (any, bool) {
	if t.clearOnCommit {
		return nil, false
	}

	if value, ok := t.entriesToAdd[key]; ok {
		return value, true
	}

	value, ok, err := t.delegate.Get(ctx, key)
	if err != nil {
		t.logger.Warn("underlying cache get failed, treating as miss",
			"cache", t.delegate.ID(), "key", string(key), "error", err)
		return nil, false
	}
	if !ok {
		t.entriesMissed[key] = struct{}{}
		return nil, false
	}
	return value, true
}

// Put buffers value for key until Commit.
func (t *TransactionalCache) Put(ctx context.Context, key cache.Key, value any) {
	t.entriesToAdd[key] = value
}

// Remove is not supported inside a transaction; use Clear to invalidate.
// It always reports absent and changes nothing.
func (t *TransactionalCache) Remove(ctx context.Context, key cache.Key) (any, bool) {
	return nil, false
}

// Clear hides every underlying entry from this transaction and drops buffered
// writes. The underlying cache is cleared at Commit. Missed keys are kept so
// they are still settled at commit.
func (t *TransactionalCache) Clear(ctx context.Context) {
	t.clearOnCommit = true
	clear(t.entriesToAdd)
}

// Commit publishes the transaction's effects to the underlying cache and
// resets the buffer. Should the underlying cache fail, locks for missed keys
// are released best-effort before the error is returned.
func (t *TransactionalCache) Commit(ctx context.Context) error {
	defer t.reset()

	if t.clearOnCommit {
		if err := t.delegate.Clear(ctx); err != nil {
			t.unlockMissedEntries(ctx)
			return fmt.Errorf("clear cache %s: %w", t.delegate.ID(), err)
		}
	}

	if err := t.flushPendingEntries(ctx); err != nil {
		t.unlockMissedEntries(ctx)
		return err
	}

	t.logger.Debug("transactional cache committed",
		"cache", t.delegate.ID(), "cleared", t.clearOnCommit,
		"entries", len(t.entriesToAdd), "missed", len(t.entriesMissed))
	return nil
}

// Rollback discards buffered writes, releases locks for missed keys, and
// resets the buffer. It never fails.
func (t *TransactionalCache) Rollback(ctx context.Context) {
	defer t.reset()
	t.unlockMissedEntries(ctx)
	t.logger.Debug("transactional cache rolled back",
		"cache", t.delegate.ID(), "missed", len(t.entriesMissed))
}

func (t *TransactionalCache) reset() {
	t.clearOnCommit = false
	clear(t.entriesToAdd)
	clear(t.entriesMissed)
}

func (t *TransactionalCache) flushPendingEntries(ctx context.Context) error {
	for key, value := range t.entriesToAdd {
		if err := t.delegate.Put(ctx, key, value); err != nil {
			return fmt.Errorf("put %s into cache %s: %w", key, t.delegate.ID(), err)
		}
	}

	for key := range t.entriesMissed {
		if _, produced := t.entriesToAdd[key]; produced {
			continue
		}
		if err := t.delegate.Put(ctx, key, nil); err != nil {
			return fmt.Errorf("settle missed key %s in cache %s: %w", key, t.delegate.ID(), err)
		}
	}
	return nil
}

func (t *TransactionalCache) unlockMissedEntries(ctx context.Context) {
	for key := range t.entriesMissed {
		if err := t.removeQuietly(ctx, key); err != nil {
			t.logger.Warn("unexpected failure releasing cache key; the cache adapter should tolerate removing absent keys",
				"cache", t.delegate.ID(), "key", string(key), "error", err)
		}
	}
}

// removeQuietly turns adapter panics into errors so one bad key cannot stop
// the remaining releases.
func (t *TransactionalCache) removeQuietly(ctx context.Context, key cache.Key) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.delegate.Remove(ctx, key)
}
