package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const isolatedQuotaTestRedisDB = 13

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_TEST_PASSWORD"),
		DB:       isolatedQuotaTestRedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisQuotaGuard_ReserveAndRelease(t *testing.T) {
	client := newTestRedis(t)
	guard := NewRedisQuotaGuard(client)
	ctx := context.Background()
	key := QuotaKey(uuid.NewString(), "mockup_generation", "2026-03")
	t.Cleanup(func() { client.Del(context.Background(), key) })

	seed := func(context.Context) (int64, error) { return 4, nil }

	used, ok, err := guard.Reserve(ctx, key, 1, 5, time.Minute, seed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), used)

	used, ok, err = guard.Reserve(ctx, key, 1, 5, time.Minute, seed)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(5), used)

	require.NoError(t, guard.Release(ctx, key, 1))
	val, err := client.Get(ctx, key).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(4), val)

	ttl, err := client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
