package dedupe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Guard filters externally sourced candidates that were already ingested,
// keyed by their upstream ref. Synthesized candidates carry no ref and
// bypass the guard entirely.
type Guard interface {
	// Seen records ref and reports whether it was already present.
	Seen(ctx context.Context, ref string) (bool, error)

	HealthCheck(ctx context.Context) error
	Close() error
}

const refKeyPrefix = "ingest:ref:"

// RedisGuard marks refs in Redis with a TTL, so the dedupe window survives
// restarts and is shared between replicas.
type RedisGuard struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis connects to Redis and returns a guard with the given window.
func NewRedis(addr string, db int, pass string, ttl time.Duration, logger *zap.Logger) (*RedisGuard, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       db,
		Password: pass,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisGuard{redis: rdb, ttl: ttl, logger: logger}, nil
}

// Seen sets the ref key if absent. A failed SETNX means the ref was
// already recorded inside the window.
func (g *RedisGuard) Seen(ctx context.Context, ref string) (bool, error) {
	ok, err := g.redis.SetNX(ctx, refKeyPrefix+ref, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe setnx: %w", err)
	}
	return !ok, nil
}

func (g *RedisGuard) HealthCheck(ctx context.Context) error {
	if err := g.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (g *RedisGuard) Close() error {
	return g.redis.Close()
}

// MemoryGuard is the in-process fallback when Redis is not configured.
// The window does not survive restarts.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewMemory returns an in-memory guard with the given window.
func NewMemory(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

func (g *MemoryGuard) Seen(ctx context.Context, ref string) (bool, error) {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()

	if exp, ok := g.seen[ref]; ok && now.Before(exp) {
		return true, nil
	}
	g.seen[ref] = now.Add(g.ttl)
	return false, nil
}

func (g *MemoryGuard) HealthCheck(ctx context.Context) error { return nil }

func (g *MemoryGuard) Close() error { return nil }

// StartCleaner periodically removes expired refs so the map does not grow
// without bound on long runs.
func (g *MemoryGuard) StartCleaner(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.cleanupExpired()
		case <-stop:
			return
		}
	}
}

func (g *MemoryGuard) cleanupExpired() {
	now := time.Now()
	g.mu.Lock()
	for ref, exp := range g.seen {
		if now.After(exp) {
			delete(g.seen, ref)
		}
	}
	g.mu.Unlock()
}
