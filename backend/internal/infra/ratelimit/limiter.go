package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision 是一次计数后的判定结果。
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter 以固定窗口统计 key 的请求次数。
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// RedisLimiter 把计数器放在 Redis 中，多个进程共享同一窗口。
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || r == nil || r.client == nil {
		return Decision{Allowed: true, Remaining: -1}, nil
	}
	if window <= 0 {
		window = time.Minute
	}

	counterKey := r.prefix + ":" + key
	incr, err := r.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return Decision{}, err
	}
	// 窗口从第一次请求开始计时。
	if incr == 1 {
		if err := r.client.Expire(ctx, counterKey, window).Err(); err != nil {
			return Decision{}, err
		}
	}

	count := int(incr)
	if count <= limit {
		return Decision{Allowed: true, Remaining: limit - count}, nil
	}

	ttl, err := r.client.TTL(ctx, counterKey).Result()
	if err != nil {
		return Decision{}, err
	}
	if ttl < 0 {
		ttl = window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

// sweepEvery 控制内存限流器每隔多少次调用清理一次过期窗口。
const sweepEvery = 256

// MemoryLimiter 在没有 Redis 时使用，计数只在当前进程内有效。
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]window
	calls   int
}

type window struct {
	count   int
	expires time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{now: time.Now, windows: make(map[string]window)}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, span time.Duration) (Decision, error) {
	if limit <= 0 || m == nil {
		return Decision{Allowed: true, Remaining: -1}, nil
	}
	if span <= 0 {
		span = time.Minute
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.expires) {
		w = window{expires: now.Add(span)}
	}
	w.count++
	m.windows[key] = w

	if w.count > limit {
		return Decision{Allowed: false, RetryAfter: w.expires.Sub(now)}, nil
	}
	return Decision{Allowed: true, Remaining: limit - w.count}, nil
}

// sweep 删除已过期的窗口，调用方需持有锁。
func (m *MemoryLimiter) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.expires) {
			delete(m.windows, key)
		}
	}
}
