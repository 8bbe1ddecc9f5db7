package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*KV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, ttl), mr
}

const sampleCart = `[{"id":1,"title":"Tênis de Caminhada","price":179.9,"image":"a.jpg","amount":2}]`

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestKV_Get_Success(t *testing.T) {
	kv, mr := setupTestRedis(t, 0)
	require.NoError(t, mr.Set("@RocketShoes:cart", sampleCart))

	got, found, err := kv.Get(context.Background(), "@RocketShoes:cart")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sampleCart, got)
}

func TestKV_Get_Missing(t *testing.T) {
	kv, _ := setupTestRedis(t, 0)

	got, found, err := kv.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
}

func TestKV_Get_ConnectionError(t *testing.T) {
	kv, mr := setupTestRedis(t, 0)
	mr.Close()

	_, found, err := kv.Get(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "redis get k")
}

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

func TestKV_Set_Overwrites(t *testing.T) {
	kv, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "@RocketShoes:cart", "[]"))
	require.NoError(t, kv.Set(ctx, "@RocketShoes:cart", sampleCart))

	raw, err := mr.Get("@RocketShoes:cart")
	require.NoError(t, err)
	assert.Equal(t, sampleCart, raw)
	assert.Zero(t, mr.TTL("@RocketShoes:cart"), "no ttl configured")
}

func TestKV_Set_TTL(t *testing.T) {
	kv, mr := setupTestRedis(t, 24*time.Hour)

	require.NoError(t, kv.Set(context.Background(), "@RocketShoes:cart", sampleCart))

	ttl := mr.TTL("@RocketShoes:cart")
	assert.True(t, ttl > 23*time.Hour, "expected TTL > 23h, got %v", ttl)
	assert.True(t, ttl <= 24*time.Hour, "expected TTL <= 24h, got %v", ttl)

	mr.FastForward(12 * time.Hour)
	require.NoError(t, kv.Set(context.Background(), "@RocketShoes:cart", "[]"))
	assert.Equal(t, 24*time.Hour, mr.TTL("@RocketShoes:cart"), "ttl refreshed on write")
}

// ---------------------------------------------------------------------------
// Delete / Ping
// ---------------------------------------------------------------------------

func TestKV_Delete(t *testing.T) {
	kv, mr := setupTestRedis(t, 0)
	require.NoError(t, mr.Set("k", "v"))

	require.NoError(t, kv.Delete(context.Background(), "k"))
	assert.False(t, mr.Exists("k"))

	assert.NoError(t, kv.Delete(context.Background(), "k"))
}

func TestKV_Ping(t *testing.T) {
	kv, mr := setupTestRedis(t, 0)
	assert.NoError(t, kv.Ping(context.Background()))

	mr.Close()
	assert.Error(t, kv.Ping(context.Background()))
}
