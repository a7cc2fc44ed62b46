// Package mapwidget assembles the viewport, search, address resolution and offline download
// engines into one embeddable map widget with an explicit command handle.
package mapwidget

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	apperrors "github.com/geopin-service/internal/pkg/errors"
	"github.com/geopin-service/internal/usecase"
)

// Options - начальное состояние и настройки виджета
type Options struct {
	Center     domain.GeoPoint
	Zoom       int
	City       string
	State      string
	Style      domain.TileStyle
	ShowMarker bool

	Viewport usecase.ViewportOptions
	Offline  usecase.OfflineOptions
	Search   usecase.SearchOptions
}

// Deps - внешние сервисы виджета
type Deps struct {
	Geocoder repository.GeocodingRepository
	Postal   repository.PostalCodeRepository
	Tiles    repository.TileSource
	Store    repository.TileStore
	// Confirmer отвечает на запрос подтверждения синхронно; nil - ответ придет через ConfirmDownload
	Confirmer usecase.Confirmer
	Logger    *zap.Logger
}

// Callbacks - подписки хоста. Любой колбэк может быть nil.
type Callbacks struct {
	OnLocationSelect      func(domain.ResolvedLocation)
	OnZoomChange          func(int)
	OnDownloadStateChange func(domain.DownloadState)
	OnConfirm             func(domain.ConfirmRequest)
	OnPending             func(domain.PendingResolution)
	OnSuggestions         func([]domain.SearchSuggestion)
}

// Widget - карта с поиском адреса и офлайн-загрузкой тайлов
type Widget struct {
	viewport *usecase.ViewportController
	offline  *usecase.OfflineTileUseCase
	input    *usecase.SearchInput
	address  *usecase.AddressResolutionUseCase
	logger   *zap.Logger

	mu         sync.RWMutex
	style      domain.TileStyle
	showMarker bool
	marker     domain.GeoPoint
	onLocation func(domain.ResolvedLocation)
}

// Commands - императивные операции, которые хост может вызвать у виджета
type Commands struct {
	w *Widget
}

// New собирает виджет и возвращает его вместе с набором команд
func New(opts Options, deps Deps, callbacks Callbacks) (*Widget, Commands) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if !opts.Style.Valid() {
		opts.Style = domain.TileStyleStandard
	}

	w := &Widget{
		logger:     logger,
		style:      opts.Style,
		showMarker: opts.ShowMarker,
		marker:     domain.NoPoint(),
		onLocation: callbacks.OnLocationSelect,
	}

	w.viewport = usecase.NewViewportController(opts.Center, opts.Zoom, opts.Viewport, callbacks.OnZoomChange, logger.Named("viewport"))
	w.offline = usecase.NewOfflineTileUseCase(
		deps.Tiles,
		deps.Store,
		deps.Confirmer,
		opts.Offline,
		callbacks.OnDownloadStateChange,
		callbacks.OnConfirm,
		logger.Named("offline"),
	)
	w.input = usecase.NewSearchInput(deps.Geocoder, opts.Search, callbacks.OnSuggestions, logger.Named("search"))
	w.address = usecase.NewAddressResolutionUseCase(
		deps.Geocoder,
		deps.Postal,
		w.viewport,
		w.input,
		usecase.AddressCallbacks{
			OnResolved: w.locationSelected,
			OnPending:  callbacks.OnPending,
		},
		logger.Named("address"),
	)
	w.address.SetRegion(opts.City, opts.State)

	return w, Commands{w: w}
}

func (w *Widget) locationSelected(loc domain.ResolvedLocation) {
	w.mu.Lock()
	w.marker = loc.Point
	cb := w.onLocation
	w.mu.Unlock()

	if cb != nil {
		cb(loc)
	}
}

// Close stops timers, cancels a running download and ends callback delivery.
func (w *Widget) Close() {
	w.offline.Close()
	w.input.Close()
	w.address.Close()
}

// Commands returns the imperative handle of the widget.
func (w *Widget) Commands() Commands {
	return Commands{w: w}
}

// TriggerOfflineDownload запускает загрузку тайлов текущей видимой области
func (c Commands) TriggerOfflineDownload(ctx context.Context) (string, error) {
	bounds, ok := c.w.viewport.Bounds()
	if !ok {
		return "", apperrors.ErrInvalidCoordinates.WithMessage("Viewport has no center yet")
	}
	return c.w.offline.Start(ctx, c.w.Style(), bounds)
}

// CancelOfflineDownload отменяет загрузку; false, если отменять нечего
func (c Commands) CancelOfflineDownload() bool {
	return c.w.offline.Cancel()
}

// SearchAndCenter ищет адрес, перелетает к нему и выполняет сверку индекса.
// Итоговый адрес приходит через OnLocationSelect (или OnPending).
func (c Commands) SearchAndCenter(ctx context.Context, address string) error {
	_, err := c.w.address.SearchAndCenter(ctx, address)
	return err
}

// SetView - внешнее обновление центра и зума
func (w *Widget) SetView(point domain.GeoPoint, zoom int) usecase.ViewDecision {
	return w.viewport.Update(point, zoom)
}

// UserZoom - зум жестом пользователя; центр не меняется
func (w *Widget) UserZoom(zoom int) int {
	return w.viewport.UserZoom(zoom)
}

func (w *Widget) BeginInteraction() {
	w.viewport.BeginInteraction()
}

// EndInteraction завершает перетаскивание; center - итоговый центр рендерера
func (w *Widget) EndInteraction(center domain.GeoPoint) {
	w.viewport.SyncCenter(center)
	w.viewport.EndInteraction()
}

func (w *Widget) SetSize(width, height int) {
	w.viewport.SetViewportSize(width, height)
}

func (w *Widget) SetRegion(city, state string) {
	w.address.SetRegion(city, state)
}

func (w *Widget) SetShowMarker(show bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.showMarker = show
}

// SetTileStyle меняет источник тайлов; идущая загрузка продолжает со старым стилем
func (w *Widget) SetTileStyle(style domain.TileStyle) error {
	if !style.Valid() {
		return apperrors.ErrInvalidTileStyle
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.style = style
	return nil
}

func (w *Widget) Style() domain.TileStyle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.style
}

// Type - набранный пользователем текст
func (w *Widget) Type(text string) {
	w.input.Type(text)
}

func (w *Widget) SelectSuggestion(ctx context.Context, index int, houseNumber string) (*domain.ResolvedLocation, error) {
	return w.address.SelectSuggestion(ctx, index, houseNumber)
}

func (w *Widget) Click(ctx context.Context, point domain.GeoPoint) (*domain.ResolvedLocation, error) {
	return w.address.Click(ctx, point)
}

func (w *Widget) SelectCandidate(postalCode string) (*domain.ResolvedLocation, error) {
	return w.address.SelectCandidate(postalCode)
}

func (w *Widget) CancelPending() (*domain.ResolvedLocation, error) {
	return w.address.CancelPending()
}

// ConfirmDownload отвечает на открытый запрос подтверждения загрузки
func (w *Widget) ConfirmDownload(accept bool) error {
	return w.offline.Confirm(accept)
}

func (w *Widget) DownloadState() domain.DownloadState {
	return w.offline.State()
}

func (w *Widget) PendingConfirmation() *domain.ConfirmRequest {
	return w.offline.PendingConfirmation()
}

func (w *Widget) Pending() *domain.PendingResolution {
	return w.address.Pending()
}

func (w *Widget) LastResolved() *domain.ResolvedLocation {
	return w.address.LastResolved()
}

// SearchState - состояние поля ввода
type SearchState struct {
	Text        string                    `json:"text"`
	Query       string                    `json:"query"`
	Mode        usecase.InputMode         `json:"mode"`
	Suggestions []domain.SearchSuggestion `json:"suggestions"`
}

func (w *Widget) Search() SearchState {
	return SearchState{
		Text:        w.input.Text(),
		Query:       w.input.ScopedQuery(),
		Mode:        w.input.Mode(),
		Suggestions: w.input.Suggestions(),
	}
}

// Snapshot - состояние виджета только для чтения
type Snapshot struct {
	Viewport     usecase.ViewportSnapshot  `json:"viewport"`
	Bounds       *domain.Bounds            `json:"bounds,omitempty"`
	Style        domain.TileStyle          `json:"style"`
	ShowMarker   bool                      `json:"show_marker"`
	Marker       *domain.GeoPoint          `json:"marker,omitempty"`
	Download     domain.DownloadState      `json:"download"`
	Confirmation *domain.ConfirmRequest    `json:"confirmation,omitempty"`
	Search       SearchState               `json:"search"`
	Pending      *domain.PendingResolution `json:"pending,omitempty"`
	LastResolved *domain.ResolvedLocation  `json:"last_resolved,omitempty"`
}

func (w *Widget) Snapshot() Snapshot {
	snap := Snapshot{
		Viewport:     w.viewport.Snapshot(),
		Download:     w.offline.State(),
		Confirmation: w.offline.PendingConfirmation(),
		Search:       w.Search(),
		Pending:      w.address.Pending(),
		LastResolved: w.address.LastResolved(),
	}
	if b, ok := w.viewport.Bounds(); ok {
		snap.Bounds = &b
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	snap.Style = w.style
	snap.ShowMarker = w.showMarker
	if w.showMarker && w.marker.Valid() {
		marker := w.marker
		snap.Marker = &marker
	}
	return snap
}
