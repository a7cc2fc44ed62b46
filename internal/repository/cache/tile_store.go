package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
)

type tileStore struct {
	cache repository.CacheRepository
	ttl   time.Duration
}

// NewTileStore хранит офлайн-тайлы в Redis под ключами tile:<style>:z:x:y
func NewTileStore(cache repository.CacheRepository, ttl time.Duration) repository.TileStore {
	return &tileStore{cache: cache, ttl: ttl}
}

// TileKey builds the cache key of a tile.
func TileKey(style domain.TileStyle, tile domain.TileIndex) string {
	return fmt.Sprintf("tile:%s:%d:%d:%d", style, tile.Z, tile.X, tile.Y)
}

// GetTile returns nil data on a miss.
func (s *tileStore) GetTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex) ([]byte, error) {
	return s.cache.Get(ctx, TileKey(style, tile))
}

func (s *tileStore) SetTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex, data []byte) error {
	return s.cache.Set(ctx, TileKey(style, tile), data, s.ttl)
}

// HasTile продлевает жизнь найденного тайла: повторная загрузка области не должна терять его по TTL
func (s *tileStore) HasTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex) (bool, error) {
	return s.cache.Touch(ctx, TileKey(style, tile), s.ttl)
}
