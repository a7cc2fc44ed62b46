// Package tilesource downloads raster tiles from public URL templates.
package tilesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geopin-service/internal/config"
	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/pkg/utils"
)

// Template - шаблон URL тайла. {s} заменяется на один из Subdomains.
type Template struct {
	URL        string
	Subdomains []string
}

// DefaultTemplates - три взаимозаменяемых источника. Спутник Esri адресуется как z/y/x.
var DefaultTemplates = map[domain.TileStyle]Template{
	domain.TileStyleStandard: {
		URL:        "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Subdomains: []string{"a", "b", "c"},
	},
	domain.TileStyleSatellite: {
		URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
	},
	domain.TileStyleHybrid: {
		URL:        "https://mt{s}.google.com/vt/lyrs=y&x={x}&y={y}&z={z}",
		Subdomains: []string{"0", "1", "2", "3"},
	},
}

const maxTileBytes = 4 << 20

// Option configures the fetcher.
type Option func(*fetcher)

// WithTemplates overrides the URL templates.
func WithTemplates(templates map[domain.TileStyle]Template) Option {
	return func(f *fetcher) {
		f.templates = templates
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *fetcher) {
		f.httpClient = hc
	}
}

// WithOnlineURL sets the URL used by Online.
func WithOnlineURL(u string) Option {
	return func(f *fetcher) {
		f.onlineURL = u
	}
}

type fetcher struct {
	httpClient *http.Client
	templates  map[domain.TileStyle]Template
	userAgent  string
	onlineURL   string
	logger     *zap.Logger
}

// NewFetcher создает источник тайлов
func NewFetcher(cfg *config.TilesConfig, logger *zap.Logger, opts ...Option) repository.TileSource {
	f := &fetcher{
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		templates:  DefaultTemplates,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.onlineURL == "" {
		f.onlineURL = ExpandURL(f.templates[domain.TileStyleStandard], domain.TileIndex{})
	}
	return f
}

// ExpandURL подставляет координаты тайла в шаблон. Поддомен выбирается детерминированно по (x+y).
func ExpandURL(t Template, tile domain.TileIndex) string {
	sub := ""
	if len(t.Subdomains) > 0 {
		sub = t.Subdomains[(tile.X+tile.Y)%len(t.Subdomains)]
	}
	r := strings.NewReplacer(
		"{s}", sub,
		"{z}", strconv.Itoa(tile.Z),
		"{x}", strconv.Itoa(tile.X),
		"{y}", strconv.Itoa(tile.Y),
	)
	return r.Replace(t.URL)
}

// Fetch загружает тайл. FetchStandard требует 200 и Content-Type image/*.
// FetchPermissive не шлет Accept и игнорирует заголовок типа, но тело обязано быть картинкой.
func (f *fetcher) Fetch(ctx context.Context, style domain.TileStyle, tile domain.TileIndex, mode repository.FetchMode) ([]byte, error) {
	tmpl, ok := f.templates[style]
	if !ok {
		return nil, fmt.Errorf("unknown tile style %q", style)
	}
	url := ExpandURL(tmpl, tile)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if mode == repository.FetchStandard {
		req.Header.Set("Accept", "image/png,image/jpeg,image/*")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tile %d/%d/%d (%s): %w", tile.Z, tile.X, tile.Y, mode, err)
	}
	defer resp.Body.Close()

	switch mode {
	case repository.FetchStandard:
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch tile %d/%d/%d: status %d", tile.Z, tile.X, tile.Y, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
			return nil, fmt.Errorf("fetch tile %d/%d/%d: unexpected content type %q", tile.Z, tile.X, tile.Y, ct)
		}
	default:
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("fetch tile %d/%d/%d (%s): status %d", tile.Z, tile.X, tile.Y, mode, resp.StatusCode)
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, fmt.Errorf("read tile body: %w", err)
	}
	// страница ошибки или капча с кодом 200 не должна попасть в кэш
	if !utils.IsImage(data) {
		return nil, fmt.Errorf("fetch tile %d/%d/%d (%s): body is not an image", tile.Z, tile.X, tile.Y, mode)
	}

	f.logger.Debug("Tile fetched",
		zap.String("style", string(style)),
		zap.Int("z", tile.Z), zap.Int("x", tile.X), zap.Int("y", tile.Y),
		zap.Stringer("mode", mode),
		zap.Int("bytes", len(data)))

	return data, nil
}

// Online проверяет сеть HEAD-запросом к источнику; любой HTTP-ответ означает, что сеть есть
func (f *fetcher) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.onlineURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Info("Tile source unreachable", zap.String("url", f.onlineURL), zap.Error(err))
		return false
	}
	resp.Body.Close()
	return true
}
