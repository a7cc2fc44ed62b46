package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/pkg/metrics"
	"github.com/geopin-service/internal/pkg/utils"
)

// CachedGeocoder - геокодер с кешем ответов. Ошибки кеша только логируются.
type CachedGeocoder struct {
	next      repository.GeocodingRepository
	cacheRepo repository.CacheRepository
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewCachedGeocoder оборачивает геокодер кешем
func NewCachedGeocoder(
	next repository.GeocodingRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
	logger *zap.Logger,
) repository.GeocodingRepository {
	return &CachedGeocoder{
		next:      next,
		cacheRepo: cacheRepo,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

func SearchCacheKey(query string, limit int) string {
	return fmt.Sprintf("geocode:search:%d:%s", limit, utils.FoldText(query))
}

// ReverseCacheKey rounds to 5 decimals (about a metre).
func ReverseCacheKey(point domain.GeoPoint) string {
	return fmt.Sprintf("geocode:reverse:%.5f:%.5f", point.Lat, point.Lng)
}

func (g *CachedGeocoder) Search(ctx context.Context, query string, limit int) ([]domain.SearchSuggestion, error) {
	key := SearchCacheKey(query, limit)

	var cached []domain.SearchSuggestion
	if g.load(ctx, key, &cached) {
		return cached, nil
	}

	results, err := g.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		g.store(ctx, key, results)
	}
	return results, nil
}

func (g *CachedGeocoder) Reverse(ctx context.Context, point domain.GeoPoint) (*domain.AddressFields, error) {
	key := ReverseCacheKey(point)

	var cached domain.AddressFields
	if g.load(ctx, key, &cached) {
		return &cached, nil
	}

	fields, err := g.next.Reverse(ctx, point)
	if err != nil {
		return nil, err
	}
	if fields != nil && (fields.Road != "" || fields.DisplayName != "") {
		g.store(ctx, key, fields)
	}
	return fields, nil
}

func (g *CachedGeocoder) load(ctx context.Context, key string, dst interface{}) bool {
	data, err := g.cacheRepo.Get(ctx, key)
	if err != nil {
		g.logger.Warn("Geocode cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if data == nil {
		metrics.CacheMissesTotal.Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		g.logger.Warn("Corrupted geocode cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	metrics.CacheHitsTotal.Inc()
	return true
}

func (g *CachedGeocoder) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		g.logger.Warn("Failed to marshal geocode result", zap.Error(err))
		return
	}
	if err := g.cacheRepo.Set(ctx, key, data, g.cacheTTL); err != nil {
		g.logger.Warn("Geocode cache write failed", zap.String("key", key), zap.Error(err))
	}
}
