package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
)

func getTestRedis(t *testing.T) *Redis {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return NewRedisFromClient(client, "geopin-test", zap.NewNop())
}

func TestCacheRepository_GetSetTouch(t *testing.T) {
	r := getTestRedis(t)
	repo := NewCacheRepository(r)
	ctx := context.Background()
	key := "geocode:reverse:-25.42840:-49.27330"
	defer r.Client().Del(ctx, r.Key(key))

	miss, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, miss)

	ok, err := repo.Touch(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, key, []byte(`{"road":"Rua XV"}`), time.Minute))

	exists, err := repo.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	// ключ лежит в пространстве имен сервиса
	raw, err := r.Client().Get(ctx, "geopin-test:"+key).Bytes()
	require.NoError(t, err)
	assert.JSONEq(t, `{"road":"Rua XV"}`, string(raw))

	ok, err = repo.Touch(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	ttl, err := r.Client().TTL(ctx, r.Key(key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)

	val, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"road":"Rua XV"}`, string(val))
}

func TestTileStore_RoundTrip(t *testing.T) {
	r := getTestRedis(t)
	store := NewTileStore(NewCacheRepository(r), time.Minute)
	ctx := context.Background()
	tile := domain.TileIndex{Z: 16, X: 23798, Y: 37382}
	defer r.Client().Del(ctx, r.Key(TileKey(domain.TileStyleHybrid, tile)))

	has, err := store.HasTile(ctx, domain.TileStyleHybrid, tile)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.SetTile(ctx, domain.TileStyleHybrid, tile, []byte{1, 2, 3}))

	data, err := store.GetTile(ctx, domain.TileStyleHybrid, tile)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	has, err = store.HasTile(ctx, domain.TileStyleHybrid, tile)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRedis_Key(t *testing.T) {
	assert.Equal(t, "geopin:tile:standard:1:0:0", NewRedisFromClient(nil, "geopin", zap.NewNop()).Key("tile:standard:1:0:0"))
	assert.Equal(t, "tile:standard:1:0:0", NewRedisFromClient(nil, "", zap.NewNop()).Key("tile:standard:1:0:0"))
}

func TestTileKey(t *testing.T) {
	assert.Equal(t, "tile:satellite:14:5949:9345",
		TileKey(domain.TileStyleSatellite, domain.TileIndex{Z: 14, X: 5949, Y: 9345}))
}
