package di

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-txcache/cache"
)

func TestNewContainer(t *testing.T) {
	config := cache.Config{
		Backend:            cache.BackendSturdyc,
		Capacity:           1000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &cache.EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
	}

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	if container.KeySerializer() == nil {
		t.Error("Container should have a non-nil key serializer")
	}
	if container.Registry() == nil {
		t.Error("Container should have a non-nil registry")
	}

	storedConfig := container.Config()
	if storedConfig.Capacity != config.Capacity {
		t.Errorf("Expected capacity %d, got %d", config.Capacity, storedConfig.Capacity)
	}
	if storedConfig.TTL != config.TTL {
		t.Errorf("Expected TTL %v, got %v", config.TTL, storedConfig.TTL)
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	config := container.Config()
	defaultConfig := cache.DefaultConfig()

	if config.Capacity != defaultConfig.Capacity {
		t.Errorf("Expected default capacity %d, got %d", defaultConfig.Capacity, config.Capacity)
	}
	if config.TTL != defaultConfig.TTL {
		t.Errorf("Expected default TTL %v, got %v", defaultConfig.TTL, config.TTL)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	invalidConfig := cache.DefaultConfig()
	invalidConfig.Capacity = 0

	_, err := NewContainer(invalidConfig)

	var cfgErr *cache.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *cache.ConfigError, got %v", err)
	}
	if cfgErr.Field != "Capacity" {
		t.Errorf("expected Capacity field error, got %q", cfgErr.Field)
	}
}

func TestContainer_CachePerNamespace(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	users1, err := container.Cache("users")
	if err != nil {
		t.Fatalf("Cache() failed: %v", err)
	}
	users2, err := container.Cache("users")
	if err != nil {
		t.Fatalf("Cache() failed: %v", err)
	}
	orders, err := container.Cache("orders")
	if err != nil {
		t.Fatalf("Cache() failed: %v", err)
	}

	if users1 != users2 {
		t.Error("Cache() should return the same instance per namespace")
	}
	if users1 == orders {
		t.Error("Cache() should return distinct instances per namespace")
	}
	if users1.ID() != "users" || orders.ID() != "orders" {
		t.Errorf("unexpected cache ids %q, %q", users1.ID(), orders.ID())
	}
	if got := container.Namespaces(); !slices.Equal(got, []string{"orders", "users"}) {
		t.Errorf("unexpected namespaces %v", got)
	}
}

func TestContainer_CacheForKeepsFirstConfig(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	lruConfig := cache.DefaultConfig()
	lruConfig.Backend = cache.BackendLRU
	lruConfig.TTL = 0
	first, err := container.CacheFor("audit", lruConfig)
	if err != nil {
		t.Fatalf("CacheFor() failed: %v", err)
	}

	broken := cache.DefaultConfig()
	broken.Capacity = 0
	second, err := container.CacheFor("audit", broken)
	if err != nil {
		t.Fatalf("CacheFor() on an existing namespace should not revalidate: %v", err)
	}
	if first != second {
		t.Error("expected the existing cache")
	}

	if _, err := container.CacheFor("other", broken); err == nil {
		t.Error("expected invalid config to fail for a new namespace")
	}
}

func TestContainer_ConcurrentCacheCreation(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	const workers = 16
	results := make([]cache.Cache, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := container.Cache("shared")
			if err != nil {
				t.Errorf("Cache() failed: %v", err)
				return
			}
			results[i] = c
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent callers received different caches")
		}
	}
}

func TestKeySerializerIntegration(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	keySerializer := container.KeySerializer()

	testCases := []struct {
		name     string
		method   string
		args     []any
		expected string
	}{
		{name: "no args", method: "Get", args: []any{}, expected: "Get"},
		{name: "single string arg", method: "GetByID", args: []any{"123"}, expected: "GetByID::123"},
		{name: "multiple args", method: "List", args: []any{"user", 10, true}, expected: "List::user::10::true"},
		{name: "nil arg", method: "Count", args: []any{nil}, expected: "Count::nil"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := keySerializer.SerializeKey(tc.method, tc.args...)
			if string(result) != tc.expected {
				t.Errorf("Expected key %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestKeySerializer_MaxKeyLength(t *testing.T) {
	config := cache.DefaultConfig()
	config.MaxKeyLength = 32

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	key := container.KeySerializer().SerializeKey("users.selectAll", strings.Repeat("x", 100))
	if len(key) > 40 || !strings.HasPrefix(string(key), "users.selectAll::xxh:") {
		t.Errorf("expected compacted key, got %q", key)
	}
}

func TestContainer_LoadMapper(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	doc := `
namespace: users
cache:
  backend: lru
  capacity: 10
  ttl: 1m
statements:
  - id: selectByID
    sql: SELECT id FROM users WHERE id = #{id}
`
	if err := container.LoadMapper(strings.NewReader(doc)); err != nil {
		t.Fatalf("LoadMapper() failed: %v", err)
	}

	st, err := container.Registry().Statement("users.selectByID")
	if err != nil {
		t.Fatalf("statement not registered: %v", err)
	}

	users, err := container.Cache("users")
	if err != nil {
		t.Fatalf("Cache() failed: %v", err)
	}
	if st.Cache != users {
		t.Error("mapper statements should share the container's namespace cache")
	}

	if err := users.Put(context.Background(), "k", 1); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if users.Size() != 1 {
		t.Errorf("expected one entry, got %d", users.Size())
	}

	if err := container.LoadMapperFile("testdata/missing.yaml"); err == nil {
		t.Error("expected an error for a missing mapper file")
	}
}
