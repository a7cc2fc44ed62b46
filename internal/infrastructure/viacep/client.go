package viacep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/geopin-service/internal/config"
	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/pkg/metrics"
	"github.com/geopin-service/internal/pkg/utils"
)

// минимальная длина города и улицы, которую принимает сервис
const minTermLength = 3

type client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient создает клиент ViaCEP-совместимого сервиса почтовых индексов
func NewClient(cfg *config.PostalConfig, logger *zap.Logger) repository.PostalCodeRepository {
	return &client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

type entry struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
}

// Lookup возвращает все индексы улицы в городе: GET /ws/{UF}/{city}/{street}/json/
func (c *client) Lookup(ctx context.Context, state, city, street string) ([]domain.PostalCandidate, error) {
	uf := StateCode(state)
	if uf == "" {
		return nil, fmt.Errorf("postal lookup: unknown state %q", state)
	}
	if utils.RuneLen(strings.TrimSpace(city)) < minTermLength || utils.RuneLen(strings.TrimSpace(street)) < minTermLength {
		return nil, fmt.Errorf("postal lookup: city and street must have at least %d characters", minTermLength)
	}

	endpoint := fmt.Sprintf("%s/ws/%s/%s/%s/json/",
		c.baseURL,
		uf,
		url.PathEscape(strings.TrimSpace(city)),
		url.PathEscape(strings.TrimSpace(street)),
	)

	c.logger.Debug("Calling postal service",
		zap.String("uf", uf),
		zap.String("city", city),
		zap.String("street", street))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PostalRequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.PostalRequestsTotal.WithLabelValues("http_error").Inc()
		c.logger.Warn("Postal service returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("postal service error: status %d", resp.StatusCode)
	}

	// на ошибку сервис отвечает объектом {"erro": true} вместо массива
	if trimmed := strings.TrimSpace(string(body)); strings.HasPrefix(trimmed, "{") {
		metrics.PostalRequestsTotal.WithLabelValues("not_found").Inc()
		return []domain.PostalCandidate{}, nil
	}

	var entries []entry
	if err := json.Unmarshal(body, &entries); err != nil {
		metrics.PostalRequestsTotal.WithLabelValues("decode_error").Inc()
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	candidates := make([]domain.PostalCandidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, domain.PostalCandidate{
			PostalCode:   e.CEP,
			Street:       e.Logradouro,
			Complement:   e.Complemento,
			Neighborhood: e.Bairro,
			City:         e.Localidade,
			State:        e.UF,
		})
	}

	metrics.PostalRequestsTotal.WithLabelValues("ok").Inc()
	c.logger.Debug("Postal lookup successful", zap.Int("candidates", len(candidates)))

	return candidates, nil
}
