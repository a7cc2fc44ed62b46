package repository

import (
	"context"

	"github.com/geopin-service/internal/domain"
)

// PostalCodeRepository ищет почтовые индексы улицы в пределах города
type PostalCodeRepository interface {
	Lookup(ctx context.Context, state, city, street string) ([]domain.PostalCandidate, error)
}
