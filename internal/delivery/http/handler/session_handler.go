package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/mapwidget"
	"github.com/geopin-service/internal/pkg/utils"
	"github.com/geopin-service/internal/usecase/dto"
)

// SessionHandler - обработчик жизненного цикла виджета и камеры
type SessionHandler struct {
	registry *mapwidget.Registry
	logger   *zap.Logger
}

// NewSessionHandler - создание нового SessionHandler
func NewSessionHandler(registry *mapwidget.Registry, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		logger:   logger,
	}
}

// Create godoc
// @Summary Создание виджета карты
// @Description Создает сессию виджета с начальным центром, зумом, регионом поиска и стилем тайлов
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body dto.CreateSessionRequest true "Начальное состояние"
// @Success 201 {object} utils.SuccessResponse{data=dto.CreateSessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/sessions [post]
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	showMarker := true
	if req.ShowMarker != nil {
		showMarker = *req.ShowMarker
	}

	s := h.registry.Create(mapwidget.Options{
		Center:     domain.NewGeoPoint(req.Lat, req.Lng),
		Zoom:       req.Zoom,
		City:       req.City,
		State:      req.State,
		Style:      domain.TileStyle(req.Style),
		ShowMarker: showMarker,
	})
	if req.Width > 0 && req.Height > 0 {
		s.Widget.SetSize(req.Width, req.Height)
	}

	return utils.SendCreated(c, dto.CreateSessionResponse{SessionID: s.ID.String()})
}

// Get godoc
// @Summary Состояние виджета
// @Description Камера, видимая область, загрузка, поле поиска, ожидающее разрешение и последний адрес
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} utils.SuccessResponse{data=mapwidget.Snapshot}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, s.Widget.Snapshot(), nil)
}

// Delete godoc
// @Summary Закрытие виджета
// @Tags Sessions
// @Param id path string true "ID сессии"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	if err := h.registry.Delete(s.ID); err != nil {
		return utils.SendError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetView godoc
// @Summary Внешнее обновление центра и зума
// @Description Хост сообщает желаемый центр и зум. Ответ говорит рендереру, что делать с камерой: recenter, zoom_only или none.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.SetViewRequest true "Центр и зум"
// @Success 200 {object} utils.SuccessResponse{data=dto.ViewResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/view [put]
func (h *SessionHandler) SetView(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.SetViewRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	d := s.Widget.SetView(req.Point(), req.Zoom)
	return utils.SendSuccess(c, dto.ViewResponse{
		Action: d.Action.String(),
		Center: d.Center,
		Zoom:   d.Zoom,
	}, nil)
}

// UserZoom godoc
// @Summary Зум жестом пользователя
// @Description Меняет только зум, центр остается прежним. Возвращает примененный зум.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.UserZoomRequest true "Новый зум"
// @Success 200 {object} utils.SuccessResponse{data=dto.ViewResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/zoom [post]
func (h *SessionHandler) UserZoom(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.UserZoomRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	zoom := s.Widget.UserZoom(req.Zoom)
	view := s.Widget.Snapshot().Viewport
	return utils.SendSuccess(c, dto.ViewResponse{
		Action: "zoom_only",
		Center: view.Center,
		Zoom:   zoom,
	}, nil)
}

// Interaction godoc
// @Summary Начало или конец перетаскивания карты
// @Tags Sessions
// @Accept json
// @Param id path string true "ID сессии"
// @Param request body dto.InteractionRequest true "Фаза жеста"
// @Success 204
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/interaction [post]
func (h *SessionHandler) Interaction(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.InteractionRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	if req.Phase == "begin" {
		s.Widget.BeginInteraction()
	} else {
		s.Widget.EndInteraction(req.Point())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetRegion godoc
// @Summary Город и штат для поиска
// @Tags Sessions
// @Accept json
// @Param id path string true "ID сессии"
// @Param request body dto.RegionRequest true "Регион"
// @Success 204
// @Router /api/v1/sessions/{id}/region [put]
func (h *SessionHandler) SetRegion(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.RegionRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	s.Widget.SetRegion(req.City, req.State)
	return c.SendStatus(fiber.StatusNoContent)
}

// SetSize godoc
// @Summary Размер карты в пикселях
// @Tags Sessions
// @Accept json
// @Param id path string true "ID сессии"
// @Param request body dto.SizeRequest true "Размер"
// @Success 204
// @Router /api/v1/sessions/{id}/size [put]
func (h *SessionHandler) SetSize(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.SizeRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	s.Widget.SetSize(req.Width, req.Height)
	return c.SendStatus(fiber.StatusNoContent)
}

// SetStyle godoc
// @Summary Стиль тайлов
// @Tags Sessions
// @Accept json
// @Param id path string true "ID сессии"
// @Param request body dto.StyleRequest true "standard, satellite или hybrid"
// @Success 204
// @Router /api/v1/sessions/{id}/style [put]
func (h *SessionHandler) SetStyle(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.StyleRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := s.Widget.SetTileStyle(domain.TileStyle(req.Style)); err != nil {
		return utils.SendError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetMarker godoc
// @Summary Показ маркера выбранной точки
// @Tags Sessions
// @Accept json
// @Param id path string true "ID сессии"
// @Param request body dto.MarkerRequest true "Показывать маркер"
// @Success 204
// @Router /api/v1/sessions/{id}/marker [put]
func (h *SessionHandler) SetMarker(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.MarkerRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	s.Widget.SetShowMarker(req.Show)
	return c.SendStatus(fiber.StatusNoContent)
}
