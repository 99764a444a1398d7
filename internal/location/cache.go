package location

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/markethub/geocurrency/internal/models"
	"github.com/redis/go-redis/v9"
)

// cacheKey is the fixed key the resolved location lives under
const cacheKey = "location:current"

// Cache is the durable key-value store for the resolved location
// A read past the entry's ExpiresAt must behave as a miss
type Cache interface {
	// Get returns the cached entry, or (nil, nil) when absent or expired
	Get(ctx context.Context) (*models.CachedLocationEntry, error)

	// Put stores the record with the given TTL, replacing any previous entry
	Put(ctx context.Context, record models.LocationRecord, ttl time.Duration) error

	// Clear removes the cached entry
	Clear(ctx context.Context) error

	// Close cleans up resources (connections, etc.)
	Close() error
}

// RedisCache implements Cache on Redis
// The entry carries its own expiresAt and is also stored with a Redis TTL;
// the read-side expiry check is what the contract guarantees, the Redis
// TTL just keeps dead keys from lingering
type RedisCache struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, now: time.Now}, nil
}

// Get implements Cache
func (c *RedisCache) Get(ctx context.Context) (*models.CachedLocationEntry, error) {
	val, err := c.client.Get(ctx, cacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var entry models.CachedLocationEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cached location: %w", err)
	}

	if entry.Expired(c.now()) {
		return nil, nil
	}

	return &entry, nil
}

// Put implements Cache
func (c *RedisCache) Put(ctx context.Context, record models.LocationRecord, ttl time.Duration) error {
	entry := models.CachedLocationEntry{
		Record:    record,
		ExpiresAt: c.now().Add(ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode location entry: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Clear implements Cache
func (c *RedisCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, cacheKey).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// MemoryCache implements Cache in process memory
// Used when no Redis address is configured, and by tests
// Writes are whole-entry replacements, so last-write-wins holds trivially
type MemoryCache struct {
	mu    sync.Mutex
	entry *models.CachedLocationEntry
	now   func() time.Time
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now}
}

// NewMemoryCacheWithClock creates an in-memory cache with an injected
// clock, so tests can move time past the TTL
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{now: now}
}

// Get implements Cache
func (c *MemoryCache) Get(ctx context.Context) (*models.CachedLocationEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil || c.entry.Expired(c.now()) {
		return nil, nil
	}

	copied := *c.entry
	return &copied, nil
}

// Put implements Cache
func (c *MemoryCache) Put(ctx context.Context, record models.LocationRecord, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = &models.CachedLocationEntry{
		Record:    record,
		ExpiresAt: c.now().Add(ttl),
	}
	return nil
}

// Clear implements Cache
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = nil
	return nil
}

// Close implements Cache
func (c *MemoryCache) Close() error {
	return nil
}
