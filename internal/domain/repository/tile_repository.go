package repository

import (
	"context"

	"github.com/geopin-service/internal/domain"
)

// FetchMode - режим запроса тайла
type FetchMode int

const (
	// FetchStandard - обычный запрос с проверкой статуса и типа содержимого
	FetchStandard FetchMode = iota
	// FetchPermissive - повторная попытка без проверки ответа
	FetchPermissive
)

func (m FetchMode) String() string {
	if m == FetchPermissive {
		return "permissive"
	}
	return "standard"
}

// TileSource загружает тайлы из внешнего источника
type TileSource interface {
	// Fetch загружает один тайл. В режиме FetchPermissive ответ не проверяется:
	// ошибка возвращается только при сбое транспорта.
	Fetch(ctx context.Context, style domain.TileStyle, tile domain.TileIndex, mode FetchMode) ([]byte, error)

	// Online проверяет доступность сети
	Online(ctx context.Context) bool
}

// TileStore хранит загруженные тайлы для офлайн-использования
type TileStore interface {
	GetTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex) ([]byte, error)
	SetTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex, data []byte) error
	HasTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex) (bool, error)
}
