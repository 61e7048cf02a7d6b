package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T, rate Rate) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, rate, "ratelimit:"), mr
}

func TestRedisStore_Budget(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t, Rate{Max: 2, Window: 10 * time.Minute})

	d, err := store.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)

	require.NoError(t, store.Fail(ctx, "10.0.0.1"))
	assert.True(t, mr.Exists("ratelimit:10.0.0.1"))
	assert.Equal(t, 10*time.Minute, mr.TTL("ratelimit:10.0.0.1"))

	require.NoError(t, store.Fail(ctx, "10.0.0.1"))
	d, err = store.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

func TestRedisStore_WindowExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t, Rate{Max: 1, Window: time.Minute})

	require.NoError(t, store.Fail(ctx, "client"))
	d, _ := store.Allow(ctx, "client")
	assert.False(t, d.Allowed)

	mr.FastForward(time.Minute + time.Second)

	d, err := store.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisStore_SecondFailureKeepsWindow(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t, Rate{Max: 5, Window: time.Minute})

	require.NoError(t, store.Fail(ctx, "client"))
	mr.FastForward(20 * time.Second)
	require.NoError(t, store.Fail(ctx, "client"))

	assert.Equal(t, 40*time.Second, mr.TTL("ratelimit:client"))
}

func TestRedisStore_RepairsMissingExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t, Rate{Max: 5, Window: time.Minute})

	require.NoError(t, mr.Set("ratelimit:client", "3"))
	require.NoError(t, store.Fail(ctx, "client"))

	assert.Equal(t, time.Minute, mr.TTL("ratelimit:client"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t, Rate{Max: 1, Window: time.Minute})
	mr.Close()

	d, err := store.Allow(ctx, "client")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
	assert.Error(t, store.Fail(ctx, "client"))
}
