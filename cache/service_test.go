package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	internal := cfg.toInternal()
	back := convertFromInternal(internal)
	if back.Capacity != cfg.Capacity || back.TTL != cfg.TTL || back.Backend != cfg.Backend {
		t.Errorf("config did not survive conversion: %+v vs %+v", back, cfg)
	}
	if back.EarlyRefresh == nil || *back.EarlyRefresh != *cfg.EarlyRefresh {
		t.Error("early refresh settings were lost in conversion")
	}
}

func TestConfig_ValidateMaxKeyLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxKeyLength = -1

	var configErr *ConfigError
	if err := cfg.Validate(); !errors.As(err, &configErr) || configErr.Field != "MaxKeyLength" {
		t.Errorf("expected MaxKeyLength config error, got %v", err)
	}

	if _, err := New("users", cfg); err == nil {
		t.Error("New should reject an invalid config")
	}
}

func TestNew_ImplementsCache(t *testing.T) {
	ctx := context.Background()

	c, err := New("users", Config{Backend: BackendLRU, Capacity: 8})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if c.ID() != "users" {
		t.Errorf("expected id users, got %q", c.ID())
	}

	if err := c.Put(ctx, "k", 1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if value, ok, err := c.Get(ctx, "k"); err != nil || !ok || value != 1 {
		t.Errorf("expected hit 1, got %v ok=%v err=%v", value, ok, err)
	}
}

func TestNewBlocking_TimesOutOnHeldKey(t *testing.T) {
	ctx := context.Background()

	base, err := New("users", Config{Backend: BackendLRU, Capacity: 8})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	blocking := NewBlocking(base, 5*time.Millisecond)

	if _, ok, err := blocking.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if _, _, err := blocking.Get(ctx, "k"); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("expected ErrLockTimeout, got %v", err)
	}

	if err := blocking.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, _, err := blocking.Get(ctx, "k"); err != nil {
		t.Errorf("expected lock to be free after Remove, got %v", err)
	}
}
