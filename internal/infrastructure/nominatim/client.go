package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/geopin-service/internal/config"
	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/pkg/metrics"
)

type client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	countryCodes string
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// NewClient создает клиент Nominatim-совместимого геокодера.
// Публичный Nominatim допускает не больше 1 запроса в секунду, поэтому все вызовы идут через limiter.
func NewClient(cfg *config.GeocoderConfig, logger *zap.Logger) repository.GeocodingRepository {
	burst := int(cfg.RPS)
	if burst < 1 {
		burst = 1
	}
	return &client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:    cfg.UserAgent,
		countryCodes: cfg.CountryCodes,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		logger:       logger,
	}
}

// place - элемент ответа format=jsonv2
type place struct {
	Lat         string       `json:"lat"`
	Lon         string       `json:"lon"`
	DisplayName string       `json:"display_name"`
	Importance  float64      `json:"importance"`
	Address     placeAddress `json:"address"`
	Error       string       `json:"error"`
}

type placeAddress struct {
	Road          string `json:"road"`
	Pedestrian    string `json:"pedestrian"`
	HouseNumber   string `json:"house_number"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	CityDistrict  string `json:"city_district"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Municipality  string `json:"municipality"`
	State         string `json:"state"`
	Postcode      string `json:"postcode"`
}

func (a placeAddress) fields(displayName string) domain.AddressFields {
	return domain.AddressFields{
		Road:        firstNonEmpty(a.Road, a.Pedestrian),
		HouseNumber: a.HouseNumber,
		Suburb:      firstNonEmpty(a.Suburb, a.Neighbourhood, a.CityDistrict),
		City:        firstNonEmpty(a.City, a.Town, a.Village, a.Municipality),
		State:       a.State,
		PostalCode:  a.Postcode,
		DisplayName: displayName,
	}
}

// Search выполняет прямое геокодирование
func (c *client) Search(ctx context.Context, query string, limit int) ([]domain.SearchSuggestion, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}

	var places []place
	if err := c.get(ctx, "search", "/search?"+params.Encode(), &places); err != nil {
		return nil, err
	}

	suggestions := make([]domain.SearchSuggestion, 0, len(places))
	for _, p := range places {
		point, ok := parsePoint(p.Lat, p.Lon)
		if !ok {
			c.logger.Debug("Skipping place with invalid coordinates",
				zap.String("display_name", p.DisplayName))
			continue
		}
		suggestions = append(suggestions, domain.SearchSuggestion{
			DisplayName: p.DisplayName,
			Address:     p.Address.fields(p.DisplayName),
			Point:       point,
			Importance:  p.Importance,
		})
	}

	c.logger.Debug("Geocoder search successful",
		zap.String("query", query),
		zap.Int("results", len(suggestions)))

	return suggestions, nil
}

// Reverse выполняет обратное геокодирование точки
func (c *client) Reverse(ctx context.Context, point domain.GeoPoint) (*domain.AddressFields, error) {
	if !point.Valid() {
		return nil, fmt.Errorf("reverse geocode: invalid point")
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(point.Lat, 'f', 7, 64))
	params.Set("lon", strconv.FormatFloat(point.Lng, 'f', 7, 64))
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("zoom", "18")

	var p place
	if err := c.get(ctx, "reverse", "/reverse?"+params.Encode(), &p); err != nil {
		return nil, err
	}
	if p.Error != "" {
		return nil, fmt.Errorf("reverse geocode: %s", p.Error)
	}

	fields := p.Address.fields(p.DisplayName)
	return &fields, nil
}

func (c *client) get(ctx context.Context, op, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("geocoder rate limit wait: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.GeocoderDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.5")

	c.logger.Debug("Calling geocoder", zap.String("op", op), zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GeocoderRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		c.logger.Warn("Geocoder request failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.GeocoderRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
		c.logger.Warn("Geocoder returned error",
			zap.String("op", op),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)))
		return fmt.Errorf("geocoder error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.GeocoderRequestsTotal.WithLabelValues(op, "decode_error").Inc()
		return fmt.Errorf("failed to decode response: %w", err)
	}

	metrics.GeocoderRequestsTotal.WithLabelValues(op, "ok").Inc()
	return nil
}

func parsePoint(lat, lon string) (domain.GeoPoint, bool) {
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lon, 64)
	if err1 != nil || err2 != nil {
		return domain.NoPoint(), false
	}
	p := domain.NewGeoPoint(la, lo)
	return p, p.Valid()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
