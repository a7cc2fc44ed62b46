package repository

import (
	"context"
	"time"
)

// CacheRepository - байтовый кеш с TTL (ответы геокодера, офлайн-тайлы).
// Промах кеша - это nil, nil.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение; ttl <= 0 - без срока жизни
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Exists(ctx context.Context, key string) (bool, error)

	// Touch продлевает срок жизни ключа и сообщает, существует ли он
	Touch(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
