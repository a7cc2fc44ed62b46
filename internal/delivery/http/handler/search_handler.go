package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/mapwidget"
	"github.com/geopin-service/internal/pkg/utils"
	"github.com/geopin-service/internal/usecase/dto"
)

// SearchHandler - обработчик поиска адреса, кликов и выбора почтового индекса
type SearchHandler struct {
	registry *mapwidget.Registry
	logger   *zap.Logger
}

// NewSearchHandler - создание нового SearchHandler
func NewSearchHandler(registry *mapwidget.Registry, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		registry: registry,
		logger:   logger,
	}
}

func suggestionsResponse(state mapwidget.SearchState) dto.SuggestionsResponse {
	suggestions := state.Suggestions
	if suggestions == nil {
		suggestions = []domain.SearchSuggestion{}
	}
	return dto.SuggestionsResponse{
		Query:       state.Query,
		Mode:        state.Mode.String(),
		Suggestions: suggestions,
	}
}

// Input godoc
// @Summary Текст, набранный в поле поиска
// @Description Запускает отложенный поиск подсказок. Подсказки появляются в GET /search/suggestions после паузы ввода.
// @Tags Search
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.SearchInputRequest true "Текст"
// @Success 202 {object} utils.SuccessResponse{data=dto.SuggestionsResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/search/input [post]
func (h *SearchHandler) Input(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.SearchInputRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	s.Widget.Type(req.Text)
	return utils.SendAccepted(c, suggestionsResponse(s.Widget.Search()))
}

// Suggestions godoc
// @Summary Текущие подсказки
// @Tags Search
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} utils.SuccessResponse{data=dto.SuggestionsResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/search/suggestions [get]
func (h *SearchHandler) Suggestions(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	resp := suggestionsResponse(s.Widget.Search())
	return utils.SendSuccess(c, resp, &utils.Meta{Total: len(resp.Suggestions), SessionID: s.ID.String()})
}

// Select godoc
// @Summary Выбор подсказки
// @Description Перелет камеры к подсказке и сверка адреса со справочником индексов. Если индекс неоднозначен, в ответе pending.
// @Tags Search
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.SelectSuggestionRequest true "Номер подсказки"
// @Success 200 {object} utils.SuccessResponse{data=dto.ResolutionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/search/select [post]
func (h *SearchHandler) Select(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.SelectSuggestionRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	loc, err := s.Widget.SelectSuggestion(c.UserContext(), req.Index, req.HouseNumber)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resolution(s.Widget, loc), nil)
}

// SearchAndCenter godoc
// @Summary Поиск адреса и перелет к нему
// @Description Берет лучший результат геокодера, перелетает к нему и выполняет сверку индекса
// @Tags Search
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.SearchAndCenterRequest true "Адрес"
// @Success 200 {object} utils.SuccessResponse{data=dto.ResolutionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/search-and-center [post]
func (h *SearchHandler) SearchAndCenter(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.SearchAndCenterRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	if err := s.Commands.SearchAndCenter(c.UserContext(), req.Address); err != nil {
		h.logger.Debug("Search and center failed", zap.String("address", req.Address), zap.Error(err))
		return utils.SendError(c, err)
	}

	resp := dto.ResolutionResponse{Pending: s.Widget.Pending()}
	if resp.Pending == nil {
		resp.Location = s.Widget.LastResolved()
	}
	return utils.SendSuccess(c, resp, nil)
}

// Click godoc
// @Summary Клик по карте
// @Description Обратное геокодирование точки. При сбое геокодера возвращается точка без адреса.
// @Tags Search
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.ClickRequest true "Координаты"
// @Success 200 {object} utils.SuccessResponse{data=dto.ResolutionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/click [post]
func (h *SearchHandler) Click(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.ClickRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	loc, err := s.Widget.Click(c.UserContext(), req.Point())
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resolution(s.Widget, loc), nil)
}

// SelectCandidate godoc
// @Summary Выбор почтового индекса для ожидающего адреса
// @Tags Search
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.SelectCandidateRequest true "Индекс"
// @Success 200 {object} utils.SuccessResponse{data=dto.ResolutionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/pending/select [post]
func (h *SearchHandler) SelectCandidate(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.SelectCandidateRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	loc, err := s.Widget.SelectCandidate(req.PostalCode)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, dto.ResolutionResponse{Location: loc}, nil)
}

// CancelPending godoc
// @Summary Отказ от выбора индекса
// @Description Адрес принимается как есть, без почтового индекса
// @Tags Search
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} utils.SuccessResponse{data=dto.ResolutionResponse}
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/pending/cancel [post]
func (h *SearchHandler) CancelPending(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	loc, err := s.Widget.CancelPending()
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, dto.ResolutionResponse{Location: loc}, nil)
}

// resolution - итог действия: адрес, либо ожидающее разрешение, если адрес не определен
func resolution(w *mapwidget.Widget, loc *domain.ResolvedLocation) dto.ResolutionResponse {
	if loc != nil {
		return dto.ResolutionResponse{Location: loc}
	}
	return dto.ResolutionResponse{Pending: w.Pending()}
}
