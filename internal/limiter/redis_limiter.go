package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements distributed rate limiting over Redis, for
// multi-instance deployments where limits must be shared
//
// Fixed-window counters: one key per client per window, INCR + EXPIRE
// executed atomically via a Lua script
type RedisLimiter struct {
	client         *redis.Client
	ctx            context.Context
	requestsPerSec float64
	windowSize     time.Duration
}

// NewRedisLimiter connects to Redis and verifies the connection
// Fractional rates widen the window: 0.2 req/s becomes 1 request per
// 5-second window
func NewRedisLimiter(addr, password string, db int, requestsPerSecond float64) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis for rate limiting: %w", err)
	}

	windowSize := time.Second
	if requestsPerSecond < 1.0 {
		windowSize = time.Duration(float64(time.Second) / requestsPerSecond)
	}

	return &RedisLimiter{
		client:         client,
		ctx:            ctx,
		requestsPerSec: requestsPerSecond,
		windowSize:     windowSize,
	}, nil
}

// Allow implements Limiter
func (rl *RedisLimiter) Allow(key string) bool {
	windowSeconds := int64(rl.windowSize.Seconds())
	window := time.Now().Unix() / windowSeconds
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	// INCR and EXPIRE must happen as one atomic unit or concurrent
	// requests could leave a counter without a TTL
	luaScript := `
		local key = KEYS[1]
		local ttl = tonumber(ARGV[1])

		local current = redis.call('INCR', key)
		if current == 1 then
			redis.call('EXPIRE', key, ttl)
		end
		return current
	`

	result, err := rl.client.Eval(rl.ctx, luaScript, []string{redisKey}, windowSeconds*2).Result()
	if err != nil {
		// Fail open: a Redis outage should not take the API down with it
		return true
	}

	count, ok := result.(int64)
	if !ok {
		return true
	}

	limit := rl.requestsPerSec * rl.windowSize.Seconds()
	if limit < 1 {
		limit = 1
	}
	return float64(count) <= limit
}

// Close closes the Redis connection
func (rl *RedisLimiter) Close() error {
	if rl.client != nil {
		return rl.client.Close()
	}
	return nil
}
