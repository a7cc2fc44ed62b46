package repository

import (
	"context"

	"github.com/geopin-service/internal/domain"
)

// GeocodingRepository определяет методы прямого и обратного геокодирования
type GeocodingRepository interface {
	// Search возвращает до limit кандидатов адреса по текстовому запросу
	Search(ctx context.Context, query string, limit int) ([]domain.SearchSuggestion, error)

	// Reverse возвращает поля адреса для точки
	Reverse(ctx context.Context, point domain.GeoPoint) (*domain.AddressFields, error)
}
