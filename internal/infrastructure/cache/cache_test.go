package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/servicehub-backend/internal/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSet() (*MemorySet, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemorySet(0)
	s.now = clock.Now
	return s, clock
}

func TestMemorySet_AddContains(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestSet()
	defer s.Close()

	ok, err := s.Contains(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Add(ctx, "b1", time.Hour))
	ok, _ = s.Contains(ctx, "b1")
	assert.True(t, ok)

	clock.Advance(59 * time.Minute)
	ok, _ = s.Contains(ctx, "b1")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	ok, _ = s.Contains(ctx, "b1")
	assert.False(t, ok, "entry must expire exactly at ttl")
}

func TestMemorySet_EvictExpired(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestSet()

	require.NoError(t, s.Add(ctx, "short", time.Minute))
	require.NoError(t, s.Add(ctx, "long", time.Hour))
	assert.Equal(t, 2, s.size())

	clock.Advance(2 * time.Minute)
	s.evictExpired()

	assert.Equal(t, 1, s.size())
	ok, _ := s.Contains(ctx, "long")
	assert.True(t, ok)
}

func TestMemorySet_CloseIsIdempotent(t *testing.T) {
	s := NewMemorySet(time.Millisecond)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func newRedisTestSet(t *testing.T) (*RedisSet, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s := NewRedisSet(config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisSet_AddContainsExpires(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisTestSet(t)

	require.NoError(t, s.Ping(ctx))

	ok, err := s.Contains(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Add(ctx, "b1", time.Hour))
	assert.True(t, mr.Exists("suppress:completed:b1"))
	assert.Equal(t, time.Hour, mr.TTL("suppress:completed:b1"))

	ok, err = s.Contains(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(59 * time.Minute)
	ok, _ = s.Contains(ctx, "b1")
	assert.True(t, ok)

	mr.FastForward(time.Minute)
	ok, err = s.Contains(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire exactly at ttl")
}

func TestRedisSet_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisTestSet(t)

	require.NoError(t, s.Add(ctx, "b1", time.Minute))

	ok, err := s.Contains(ctx, "b2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSet_ServerDown(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisTestSet(t)
	mr.Close()

	_, err := s.Contains(ctx, "b1")
	assert.Error(t, err)
	assert.Error(t, s.Add(ctx, "b1", time.Minute))
	assert.Error(t, s.Ping(ctx))
}
