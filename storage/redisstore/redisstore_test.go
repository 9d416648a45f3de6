package redisstore

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

// setupTestRedis connects to REDIS_ADDR. Tests are skipped when Redis is not
// available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}
	return client
}

func TestStore_SetManyAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	store := NewWithPrefix(client, "test:"+uuid.NewString()+":")

	require.NoError(t, store.SetMany(ctx, map[string]string{"access": "a", "refresh": "r"}))

	v, ok, err := store.Get(ctx, "access")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok, err = store.Get(ctx, "refresh")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "r", v)

	require.NoError(t, store.Delete(ctx, "access", "refresh"))
	_, ok, err = store.Get(ctx, "access")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_GetMissing(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewWithPrefix(client, "test:"+uuid.NewString()+":")
	_, ok, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_EmptyOperationsAreNoops(t *testing.T) {
	store := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))
	require.NoError(t, store.SetMany(context.Background(), nil))
	require.NoError(t, store.Delete(context.Background()))
}
