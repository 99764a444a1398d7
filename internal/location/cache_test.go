package location

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/markethub/geocurrency/internal/models"
	"github.com/redis/go-redis/v9"
)

func testRecord() models.LocationRecord {
	return models.LocationRecord{
		Country:         "Nigeria",
		CountryCode:     "ng",
		City:            "Lagos",
		CurrencyCode:    "ngn",
		CurrencySymbol:  "₦",
		Flag:            "🇳🇬",
		DetectionMethod: models.DetectionGeolocation,
		ResolvedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// TestMemoryCache_PutGet tests the basic round trip
func TestMemoryCache_PutGet(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	entry, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry != nil {
		t.Fatal("expected miss on empty cache")
	}

	if err := cache.Put(ctx, testRecord(), time.Hour); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	entry, err = cache.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry == nil {
		t.Fatal("expected hit after put")
	}
	if entry.Record.CountryCode != "ng" {
		t.Errorf("expected 'ng', got %q", entry.Record.CountryCode)
	}
}

// TestMemoryCache_ExpiryIsMiss tests that a read past ExpiresAt behaves
// exactly like an absent entry
func TestMemoryCache_ExpiryIsMiss(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCacheWithClock(func() time.Time { return current })
	ctx := context.Background()

	if err := cache.Put(ctx, testRecord(), 2*time.Hour); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Just inside the window
	current = current.Add(2*time.Hour - time.Second)
	if entry, _ := cache.Get(ctx); entry == nil {
		t.Fatal("expected hit one second before expiry")
	}

	// At the boundary the entry is already stale
	current = current.Add(time.Second)
	if entry, _ := cache.Get(ctx); entry != nil {
		t.Fatal("expected miss at the expiry boundary")
	}
}

// TestMemoryCache_Clear tests explicit invalidation
func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	cache.Put(ctx, testRecord(), time.Hour)
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if entry, _ := cache.Get(ctx); entry != nil {
		t.Error("expected miss after clear")
	}
}

// TestMemoryCache_LastWriteWins tests whole-record replacement
func TestMemoryCache_LastWriteWins(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	cache.Put(ctx, testRecord(), time.Hour)

	second := testRecord()
	second.CountryCode = "gh"
	second.CurrencyCode = "ghs"
	cache.Put(ctx, second, time.Hour)

	entry, _ := cache.Get(ctx)
	if entry == nil {
		t.Fatal("expected hit")
	}
	if entry.Record.CountryCode != "gh" {
		t.Errorf("expected the later write to win, got %q", entry.Record.CountryCode)
	}
}

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		now:    time.Now,
	}
	t.Cleanup(func() { cache.Close() })

	return cache, mr
}

// TestRedisCache_PutGet tests the Redis round trip
func TestRedisCache_PutGet(t *testing.T) {
	cache, _ := setupRedisCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, testRecord(), time.Hour); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	entry, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry == nil {
		t.Fatal("expected hit after put")
	}
	if entry.Record.CurrencyCode != "ngn" {
		t.Errorf("expected 'ngn', got %q", entry.Record.CurrencyCode)
	}
	if entry.Record.DetectionMethod != models.DetectionGeolocation {
		t.Errorf("detection method lost in round trip: %q", entry.Record.DetectionMethod)
	}
}

// TestRedisCache_Miss tests absent key handling
func TestRedisCache_Miss(t *testing.T) {
	cache, _ := setupRedisCache(t)

	entry, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry != nil {
		t.Error("expected miss on empty store")
	}
}

// TestRedisCache_ReadSideExpiry tests that the entry's own expiresAt is
// honored even if the Redis key is still alive
func TestRedisCache_ReadSideExpiry(t *testing.T) {
	cache, _ := setupRedisCache(t)
	ctx := context.Background()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	if err := cache.Put(ctx, testRecord(), time.Hour); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Move the clock past the entry's window without touching Redis TTLs
	current = current.Add(2 * time.Hour)

	entry, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry != nil {
		t.Error("expected the stale entry to read as a miss")
	}
}

// TestRedisCache_Clear tests key deletion
func TestRedisCache_Clear(t *testing.T) {
	cache, mr := setupRedisCache(t)
	ctx := context.Background()

	cache.Put(ctx, testRecord(), time.Hour)
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if mr.Exists("location:current") {
		t.Error("expected key removed from Redis")
	}
}
