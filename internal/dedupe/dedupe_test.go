package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisGuard(t *testing.T, ttl time.Duration) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &RedisGuard{redis: rdb, ttl: ttl, logger: zap.NewNop()}, mr
}

func TestMemoryGuard_FirstSeenThenDuplicate(t *testing.T) {
	g := NewMemory(time.Minute)
	ctx := context.Background()

	seen, err := g.Seen(ctx, "tx-1")
	require.NoError(t, err)
	assert.False(t, seen, "first occurrence must not be a duplicate")

	seen, err = g.Seen(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = g.Seen(ctx, "tx-2")
	require.NoError(t, err)
	assert.False(t, seen, "different refs are independent")
}

func TestMemoryGuard_WindowExpiry(t *testing.T) {
	g := NewMemory(50 * time.Millisecond)
	ctx := context.Background()

	seen, err := g.Seen(ctx, "tx-1")
	require.NoError(t, err)
	require.False(t, seen)

	time.Sleep(80 * time.Millisecond)

	seen, err = g.Seen(ctx, "tx-1")
	require.NoError(t, err)
	assert.False(t, seen, "an expired ref is seen again as new")
}

func TestMemoryGuard_CleanerRemovesExpired(t *testing.T) {
	g := NewMemory(20 * time.Millisecond)
	ctx := context.Background()

	_, err := g.Seen(ctx, "tx-1")
	require.NoError(t, err)
	_, err = g.Seen(ctx, "tx-2")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	g.cleanupExpired()

	g.mu.Lock()
	remaining := len(g.seen)
	g.mu.Unlock()
	assert.Zero(t, remaining)
}

func TestMemoryGuard_HealthAndClose(t *testing.T) {
	g := NewMemory(time.Minute)
	assert.NoError(t, g.HealthCheck(context.Background()))
	assert.NoError(t, g.Close())
}

func TestRedisGuard_FirstSeenThenDuplicate(t *testing.T) {
	g, _ := newRedisGuard(t, time.Minute)
	ctx := context.Background()

	seen, err := g.Seen(ctx, "tx-1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = g.Seen(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestRedisGuard_WindowExpiry(t *testing.T) {
	g, mr := newRedisGuard(t, time.Minute)
	ctx := context.Background()

	seen, err := g.Seen(ctx, "tx-1")
	require.NoError(t, err)
	require.False(t, seen)

	mr.FastForward(2 * time.Minute)

	seen, err = g.Seen(ctx, "tx-1")
	require.NoError(t, err)
	assert.False(t, seen, "the ref key must carry the configured TTL")
}

func TestRedisGuard_KeysArePrefixed(t *testing.T) {
	g, mr := newRedisGuard(t, time.Minute)

	_, err := g.Seen(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("ingest:ref:tx-1"))
}

func TestRedisGuard_HealthCheck(t *testing.T) {
	g, mr := newRedisGuard(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, g.HealthCheck(ctx))

	mr.Close()
	require.Error(t, g.HealthCheck(ctx))
}

func TestRedisGuard_SeenErrorWhenUnavailable(t *testing.T) {
	g, mr := newRedisGuard(t, time.Minute)
	mr.Close()

	_, err := g.Seen(context.Background(), "tx-1")
	require.Error(t, err, "callers decide how to degrade; the guard just reports")
}
