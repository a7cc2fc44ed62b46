package usecase

import (
	"sync"

	"go.uber.org/zap"

	"github.com/geopin-service/internal/config"
	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/pkg/tilemath"
	"github.com/geopin-service/internal/pkg/utils"
)

// ViewportMode - явное переходное состояние контроллера камеры
type ViewportMode int

const (
	// ModeIdle - внешние обновления обрабатываются обычным образом
	ModeIdle ViewportMode = iota
	// ModeSuppressed - пользователь двигает карту, позиция из обновлений игнорируется до EndInteraction.
	// Отложенный перелет при этом не сбрасывается и выполняется после жеста.
	ModeSuppressed
	// ModeSuppressOnce - игнорировать позицию ровно одного следующего обновления (эхо клика)
	ModeSuppressOnce
	// ModeFlyPending - следующее обновление перелетает на точку с фиксированным близким зумом
	ModeFlyPending
)

func (m ViewportMode) String() string {
	switch m {
	case ModeSuppressed:
		return "suppressed"
	case ModeSuppressOnce:
		return "suppress_once"
	case ModeFlyPending:
		return "fly_pending"
	default:
		return "idle"
	}
}

func (m ViewportMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ViewAction - что рендерер должен сделать с камерой
type ViewAction int

const (
	ActionNone ViewAction = iota
	ActionRecenter
	ActionZoomOnly
)

func (a ViewAction) String() string {
	switch a {
	case ActionRecenter:
		return "recenter"
	case ActionZoomOnly:
		return "zoom_only"
	default:
		return "none"
	}
}

func (a ViewAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ViewDecision - результат обработки внешнего обновления
type ViewDecision struct {
	Action ViewAction      `json:"action"`
	Center domain.GeoPoint `json:"center"`
	Zoom   int             `json:"zoom"`
}

// ViewportSnapshot - состояние камеры только для чтения
type ViewportSnapshot struct {
	Center     domain.GeoPoint `json:"center"`
	Zoom       int             `json:"zoom"`
	Mode       ViewportMode    `json:"mode"`
	FlyPending bool            `json:"fly_pending"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
}

// ViewportOptions configures the controller.
type ViewportOptions struct {
	MinZoom int
	MaxZoom int
	FlyZoom int
	// Epsilon - допуск сравнения центров в градусах
	Epsilon float64
	Width   int
	Height  int
}

// DefaultViewportOptions returns the standard limits: zoom 3..19, fly zoom 18, epsilon 0.0001°.
func DefaultViewportOptions() ViewportOptions {
	return ViewportOptions{
		MinZoom: 3,
		MaxZoom: 19,
		FlyZoom: 18,
		Epsilon: 0.0001,
		Width:   1024,
		Height:  768,
	}
}

// ViewportOptionsFromConfig overrides the zoom limits with configured values; zero keeps the default.
func ViewportOptionsFromConfig(cfg *config.ViewportConfig) ViewportOptions {
	opts := DefaultViewportOptions()
	if cfg.MinZoom > 0 {
		opts.MinZoom = cfg.MinZoom
	}
	if cfg.MaxZoom > 0 {
		opts.MaxZoom = cfg.MaxZoom
	}
	if cfg.FlyZoom > 0 {
		opts.FlyZoom = cfg.FlyZoom
	}
	return opts
}

// ViewportController - единственный писатель центра и зума карты.
// Зум-only изменения никогда не трогают центр; смена центра меняет зум только при перелете.
type ViewportController struct {
	mu     sync.RWMutex
	opts   ViewportOptions
	center domain.GeoPoint
	zoom   int

	// mode - Idle, SuppressOnce или FlyPending; жест хранится отдельно
	mode        ViewportMode
	interacting bool
	width       int
	height      int

	onZoomChange func(int)
	logger       *zap.Logger
}

// NewViewportController создает контроллер с начальным центром и зумом
func NewViewportController(center domain.GeoPoint, zoom int, opts ViewportOptions, onZoomChange func(int), logger *zap.Logger) *ViewportController {
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultViewportOptions().Epsilon
	}
	if opts.MaxZoom < opts.MinZoom {
		opts.MinZoom, opts.MaxZoom = opts.MaxZoom, opts.MinZoom
	}
	vc := &ViewportController{
		opts:         opts,
		center:       domain.NewGeoPoint(center.Lat, center.Lng),
		mode:         ModeIdle,
		width:        opts.Width,
		height:       opts.Height,
		onZoomChange: onZoomChange,
		logger:       logger,
	}
	vc.zoom = vc.clampZoom(zoom)
	return vc
}

func (vc *ViewportController) clampZoom(z int) int {
	return max(vc.opts.MinZoom, min(z, vc.opts.MaxZoom))
}

// Update обрабатывает внешнее (center, zoom) от хоста и решает: перецентрировать, только зум или ничего
func (vc *ViewportController) Update(point domain.GeoPoint, zoom int) ViewDecision {
	vc.mu.Lock()
	before := vc.zoom
	decision, flew := vc.decide(domain.NewGeoPoint(point.Lat, point.Lng), vc.clampZoom(zoom))
	vc.mu.Unlock()

	// перелет сам выбирает зум, хост должен о нем узнать
	if flew && decision.Zoom != before && vc.onZoomChange != nil {
		vc.onZoomChange(decision.Zoom)
	}
	return decision
}

func (vc *ViewportController) decide(point domain.GeoPoint, zoom int) (ViewDecision, bool) {
	if vc.interacting {
		return vc.reconcileZoom(zoom), false
	}

	switch vc.mode {
	case ModeSuppressOnce:
		vc.mode = ModeIdle
		return vc.reconcileZoom(zoom), false

	case ModeFlyPending:
		if !point.Valid() {
			// перелет ждет настоящей точки
			return vc.reconcileZoom(zoom), false
		}
		vc.mode = ModeIdle
		return vc.recenter(point, vc.clampZoom(vc.opts.FlyZoom), "fly"), true
	}

	if !point.Valid() {
		return vc.reconcileZoom(zoom), false
	}
	if !utils.SamePoint(vc.center, point, vc.opts.Epsilon) {
		return vc.recenter(point, zoom, "moved"), false
	}
	return vc.reconcileZoom(zoom), false
}

func (vc *ViewportController) recenter(point domain.GeoPoint, zoom int, reason string) ViewDecision {
	if vc.logger != nil && vc.center.Valid() {
		vc.logger.Debug("Viewport recenter",
			zap.String("reason", reason),
			zap.Float64("distance_km", utils.DistanceKm(vc.center, point)),
			zap.Int("zoom", zoom))
	}
	vc.center = point
	vc.zoom = zoom
	return ViewDecision{Action: ActionRecenter, Center: point, Zoom: zoom}
}

func (vc *ViewportController) reconcileZoom(zoom int) ViewDecision {
	if zoom == vc.zoom {
		return ViewDecision{Action: ActionNone, Center: vc.center, Zoom: vc.zoom}
	}
	vc.zoom = zoom
	return ViewDecision{Action: ActionZoomOnly, Center: vc.center, Zoom: zoom}
}

// UserZoom - жест пользователя (колесо мыши). Сообщает зум наверх и никогда не перецентрирует.
func (vc *ViewportController) UserZoom(zoom int) int {
	vc.mu.Lock()
	zoom = vc.clampZoom(zoom)
	changed := zoom != vc.zoom
	vc.zoom = zoom
	vc.mu.Unlock()

	if changed && vc.onZoomChange != nil {
		vc.onZoomChange(zoom)
	}
	return zoom
}

// BeginInteraction - пользователь начал панорамирование или жест зума
func (vc *ViewportController) BeginInteraction() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.interacting = true
	if vc.mode == ModeSuppressOnce {
		vc.mode = ModeIdle
	}
}

// EndInteraction завершает жест
func (vc *ViewportController) EndInteraction() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.interacting = false
}

// SuppressNext игнорирует позицию следующего обновления: хост вернет эхом точку клика
func (vc *ViewportController) SuppressNext() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if vc.mode == ModeIdle && !vc.interacting {
		vc.mode = ModeSuppressOnce
	}
}

// RequestFly makes the next position update fly to the fixed close zoom.
func (vc *ViewportController) RequestFly() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.mode = ModeFlyPending
}

// FlyTo перелетает на точку сразу, не дожидаясь обновления от хоста; идущий жест не мешает.
// Без валидной точки перелет остается отложенным.
func (vc *ViewportController) FlyTo(point domain.GeoPoint) ViewDecision {
	point = domain.NewGeoPoint(point.Lat, point.Lng)
	vc.mu.Lock()
	before := vc.zoom
	var (
		decision ViewDecision
		flew     bool
	)
	if point.Valid() {
		vc.mode = ModeIdle
		decision, flew = vc.recenter(point, vc.clampZoom(vc.opts.FlyZoom), "fly"), true
	} else {
		vc.mode = ModeFlyPending
		decision = ViewDecision{Action: ActionNone, Center: vc.center, Zoom: vc.zoom}
	}
	vc.mu.Unlock()

	if flew && decision.Zoom != before && vc.onZoomChange != nil {
		vc.onZoomChange(decision.Zoom)
	}
	return decision
}

// SyncCenter записывает центр после того, как рендерер закончил движение (move-end)
func (vc *ViewportController) SyncCenter(point domain.GeoPoint) {
	point = domain.NewGeoPoint(point.Lat, point.Lng)
	if !point.Valid() {
		return
	}
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.center = point
}

// SetViewportSize задает размер окна карты в пикселях
func (vc *ViewportController) SetViewportSize(width, height int) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if width > 0 && height > 0 {
		vc.width, vc.height = width, height
	}
}

// Bounds возвращает видимую область; false, если центр еще не задан
func (vc *ViewportController) Bounds() (domain.Bounds, bool) {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	if !vc.center.Valid() {
		return domain.Bounds{}, false
	}
	return tilemath.BoundsAround(vc.center, vc.zoom, vc.width, vc.height), true
}

// Snapshot returns a read-only copy of the camera state.
func (vc *ViewportController) Snapshot() ViewportSnapshot {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	mode := vc.mode
	if vc.interacting {
		mode = ModeSuppressed
	}
	return ViewportSnapshot{
		Center:     vc.center,
		Zoom:       vc.zoom,
		Mode:       mode,
		FlyPending: vc.mode == ModeFlyPending,
		Width:      vc.width,
		Height:     vc.height,
	}
}
