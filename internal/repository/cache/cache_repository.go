package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain/repository"
)

type cacheRepository struct {
	redis  *Redis
	logger *zap.Logger
}

func NewCacheRepository(r *Redis) repository.CacheRepository {
	return &cacheRepository{
		redis:  r,
		logger: r.logger.Named("cache"),
	}
}

func (r *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.redis.client.Get(ctx, r.redis.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		r.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, nil
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	// go-redis трактует 0 как "без срока жизни"
	ttl = max(ttl, 0)
	if err := r.redis.client.Set(ctx, r.redis.Key(key), value, ttl).Err(); err != nil {
		r.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	r.logger.Debug("Cache set", zap.String("key", key), zap.Int("bytes", len(value)), zap.Duration("ttl", ttl))
	return nil
}

func (r *cacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.redis.client.Exists(ctx, r.redis.Key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *cacheRepository) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return r.Exists(ctx, key)
	}
	ok, err := r.redis.client.Expire(ctx, r.redis.Key(key), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache touch %s: %w", key, err)
	}
	return ok, nil
}
