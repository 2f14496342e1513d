package txcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-txcache/cache"
)

// recordingCache is an in-memory cache.Cache that logs every call and can be
// told to fail specific operations.
type recordingCache struct {
	mu         sync.Mutex
	id         string
	entries    map[cache.Key]any
	calls      []string
	failRemove map[cache.Key]error
	panicOn    map[cache.Key]bool
	failPut    error
	failGet    error
	failClear  error
}

func newRecordingCache(id string) *recordingCache {
	return &recordingCache{
		id:         id,
		entries:    make(map[cache.Key]any),
		failRemove: make(map[cache.Key]error),
		panicOn:    make(map[cache.Key]bool),
	}
}

func (r *recordingCache) record(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recordingCache) getCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingCache) resetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *recordingCache) ID() string { return r.id }

func (r *recordingCache) Get(ctx context.Context, key cache.Key) (any, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("get:%s", key)
	if r.failGet != nil {
		return nil, false, r.failGet
	}
	value, ok := r.entries[key]
	if !ok || value == nil {
		return nil, false, nil
	}
	return value, true, nil
}

func (r *recordingCache) Put(ctx context.Context, key cache.Key, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value == nil {
		r.record("put:%s=<nil>", key)
	} else {
		r.record("put:%s=%v", key, value)
	}
	if r.failPut != nil {
		return r.failPut
	}
	r.entries[key] = value
	return nil
}

func (r *recordingCache) Remove(ctx context.Context, key cache.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("remove:%s", key)
	if r.panicOn[key] {
		panic("adapter exploded")
	}
	if err := r.failRemove[key]; err != nil {
		return err
	}
	delete(r.entries, key)
	return nil
}

func (r *recordingCache) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("clear")
	if r.failClear != nil {
		return r.failClear
	}
	r.entries = make(map[cache.Key]any)
	return nil
}

func (r *recordingCache) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// entry reports what the underlying cache physically holds for key,
// distinguishing a no-value marker from absence.
func (r *recordingCache) entry(key cache.Key) (value any, present bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, present = r.entries[key]
	return value, present
}

var errAdapter = errors.New("adapter failure")
