package limiter

import (
	"sync"
	"time"
)

// Limiter is the interface all rate limiters implement
// Lets deployments swap between in-memory and Redis without touching
// the middleware
type Limiter interface {
	// Allow reports whether a request for the given key (client IP)
	// should proceed
	Allow(key string) bool

	// Close cleans up any resources (Redis connections, etc.)
	Close() error
}

// tokenBucket is the per-client bucket: tokens refill at a fixed rate,
// each request consumes one, an empty bucket means 429
type tokenBucket struct {
	mu             sync.Mutex
	tokens         float64
	capacity       float64
	refillRate     float64 // tokens per second
	lastRefillTime time.Time
}

func newTokenBucket(rate, capacity float64) *tokenBucket {
	// Start with at least one token so the first request passes even
	// for fractional rates
	initial := capacity
	if initial < 1 {
		initial = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	return &tokenBucket{
		tokens:         initial,
		capacity:       capacity,
		refillRate:     rate,
		lastRefillTime: time.Now(),
	}
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// refill adds tokens for the elapsed time, capped at capacity
// Must be called with the mutex held
func (tb *tokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()

	tb.tokens = min(tb.tokens+elapsed*tb.refillRate, tb.capacity)
	tb.lastRefillTime = now
}

// MemoryLimiter keeps a token bucket per client key
// Suitable for single-instance deployments
type MemoryLimiter struct {
	buckets     sync.Map // map[string]*tokenBucket
	rate        float64
	capacity    float64
	cleanupMu   sync.Mutex
	lastCleanup time.Time
}

// NewMemoryLimiter creates an in-memory limiter allowing the given
// requests per second per key (fractional rates are fine)
func NewMemoryLimiter(requestsPerSecond float64) *MemoryLimiter {
	return &MemoryLimiter{
		rate:        requestsPerSecond,
		capacity:    requestsPerSecond,
		lastCleanup: time.Now(),
	}
}

// Allow implements Limiter
func (rl *MemoryLimiter) Allow(key string) bool {
	bucket := rl.getBucket(key)
	allowed := bucket.allow()
	rl.maybeCleanup()
	return allowed
}

func (rl *MemoryLimiter) getBucket(key string) *tokenBucket {
	if value, ok := rl.buckets.Load(key); ok {
		return value.(*tokenBucket)
	}

	bucket := newTokenBucket(rl.rate, rl.capacity)
	actual, _ := rl.buckets.LoadOrStore(key, bucket)
	return actual.(*tokenBucket)
}

// maybeCleanup drops buckets idle for 5+ minutes so the map cannot grow
// without bound
func (rl *MemoryLimiter) maybeCleanup() {
	rl.cleanupMu.Lock()
	defer rl.cleanupMu.Unlock()

	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}

	threshold := time.Now().Add(-5 * time.Minute)
	rl.buckets.Range(func(key, value interface{}) bool {
		bucket := value.(*tokenBucket)
		bucket.mu.Lock()
		lastAccess := bucket.lastRefillTime
		bucket.mu.Unlock()

		if lastAccess.Before(threshold) {
			rl.buckets.Delete(key)
		}
		return true
	})

	rl.lastCleanup = time.Now()
}

// Close implements Limiter; nothing to clean up in memory
func (rl *MemoryLimiter) Close() error {
	return nil
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
