package cacheinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// BlockingCache decorates a Store so that concurrent readers of a missing key
// wait for the first reader to produce it.
//
// Get takes a per-key lock. A hit releases it immediately; a miss keeps it
// held until Put or Remove is called for the same key. Remove only releases
// the lock, it never deletes the underlying entry.
type BlockingCache struct {
	delegate Store
	timeout  time.Duration
	locks    *xsync.MapOf[Key, chan struct{}]
}

var _ Store = (*BlockingCache)(nil)

// NewBlockingCache wraps delegate. A zero timeout waits until the lock is
// released or the context is done.
func NewBlockingCache(delegate Store, timeout time.Duration) *BlockingCache {
	return &BlockingCache{
		delegate: delegate,
		timeout:  timeout,
		locks:    xsync.NewMapOf[Key, chan struct{}](),
	}
}

// ID delegates to the wrapped store.
func (b *BlockingCache) ID() string {
	return b.delegate.ID()
}

// Get acquires the key lock and reads through to the wrapped store.
func (b *BlockingCache) Get(ctx context.Context, key Key) (any, bool, error) {
	if err := b.acquire(ctx, key); err != nil {
		return nil, false, err
	}

	value, ok, err := b.delegate.Get(ctx, key)
	if err != nil || ok {
		b.release(key)
	}
	return value, ok, err
}

// Put stores the value and releases the key lock.
func (b *BlockingCache) Put(ctx context.Context, key Key, value any) error {
	defer b.release(key)
	return b.delegate.Put(ctx, key, value)
}

// Remove releases the key lock without touching the wrapped store.
func (b *BlockingCache) Remove(ctx context.Context, key Key) error {
	b.release(key)
	return nil
}

// Clear delegates to the wrapped store. Held locks are kept.
func (b *BlockingCache) Clear(ctx context.Context) error {
	return b.delegate.Clear(ctx)
}

// Size delegates to the wrapped store.
func (b *BlockingCache) Size() int {
	return b.delegate.Size()
}

// Locked reports whether key is currently locked.
func (b *BlockingCache) Locked(key Key) bool {
	_, ok := b.locks.Load(key)
	return ok
}

func (b *BlockingCache) acquire(ctx context.Context, key Key) error {
	mine := make(chan struct{})

	var expired <-chan time.Time
	if b.timeout > 0 {
		timer := time.NewTimer(b.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		held, loaded := b.locks.LoadOrStore(key, mine)
		if !loaded {
			return nil
		}

		select {
		case <-held:
		case <-expired:
			return fmt.Errorf("%w: cache %s key %s", ErrLockTimeout, b.delegate.ID(), key)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *BlockingCache) release(key Key) {
	if held, ok := b.locks.LoadAndDelete(key); ok {
		close(held)
	}
}
