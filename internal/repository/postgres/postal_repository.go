package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/infrastructure/viacep"
	"github.com/geopin-service/internal/pkg/metrics"
	"github.com/geopin-service/internal/pkg/utils"
)

// PostalRepository - локальная таблица почтовых индексов (выгрузка справочника)
type PostalRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

var _ repository.PostalCodeRepository = (*PostalRepository)(nil)

// NewPostalRepository создает новый экземпляр PostalRepository
func NewPostalRepository(db *DB) *PostalRepository {
	return &PostalRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Lookup ищет индексы улицы в городе без учета регистра и диакритики
func (r *PostalRepository) Lookup(ctx context.Context, state, city, street string) ([]domain.PostalCandidate, error) {
	uf := viacep.StateCode(state)
	if uf == "" {
		return nil, fmt.Errorf("postal lookup: unknown state %q", state)
	}

	query := `
		SELECT postal_code, street, complement, neighborhood, city, state
		FROM postal_codes
		WHERE state = $1 AND city_key = $2 AND street_key = $3
		ORDER BY postal_code
	`

	candidates := []domain.PostalCandidate{}
	if err := r.db.SelectContext(ctx, &candidates, query, uf, utils.FoldText(city), utils.FoldText(street)); err != nil {
		metrics.PostalRequestsTotal.WithLabelValues("db_error").Inc()
		r.logger.Error("Failed to lookup postal codes",
			zap.String("state", uf),
			zap.String("city", city),
			zap.String("street", street),
			zap.Error(err))
		return nil, fmt.Errorf("lookup postal codes: %w", err)
	}

	metrics.PostalRequestsTotal.WithLabelValues("ok").Inc()
	r.logger.Debug("Postal lookup successful", zap.Int("candidates", len(candidates)))

	return candidates, nil
}

// Upsert загружает строки справочника; повторная загрузка той же строки ничего не меняет
func (r *PostalRepository) Upsert(ctx context.Context, candidates []domain.PostalCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO postal_codes (postal_code, street, complement, neighborhood, city, state, street_key, city_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (postal_code, street_key, complement) DO UPDATE
		SET neighborhood = EXCLUDED.neighborhood, street = EXCLUDED.street
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candidates {
		_, err := stmt.ExecContext(ctx,
			c.PostalCode, c.Street, c.Complement, c.Neighborhood, c.City,
			strings.ToUpper(c.State), utils.FoldText(c.Street), utils.FoldText(c.City),
		)
		if err != nil {
			return fmt.Errorf("upsert postal code %s: %w", c.PostalCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.Info("Postal codes imported", zap.Int("rows", len(candidates)))
	return nil
}
