package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/mapwidget"
	"github.com/geopin-service/internal/pkg/utils"
	"github.com/geopin-service/internal/usecase/dto"
)

// OfflineHandler - обработчик офлайн-загрузки тайлов видимой области
type OfflineHandler struct {
	registry *mapwidget.Registry
	logger   *zap.Logger
}

// NewOfflineHandler - создание нового OfflineHandler
func NewOfflineHandler(registry *mapwidget.Registry, logger *zap.Logger) *OfflineHandler {
	return &OfflineHandler{
		registry: registry,
		logger:   logger,
	}
}

// Trigger godoc
// @Summary Запуск офлайн-загрузки
// @Description Скачивает тайлы видимой области для диапазона зумов. Большие загрузки ждут подтверждения через /offline/confirm.
// @Tags Offline
// @Produce json
// @Param id path string true "ID сессии"
// @Success 202 {object} utils.SuccessResponse{data=dto.StartOfflineResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/offline [post]
func (h *OfflineHandler) Trigger(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}

	jobID, err := s.Commands.TriggerOfflineDownload(c.UserContext())
	if err != nil {
		return utils.SendError(c, err)
	}

	h.logger.Info("Offline download requested",
		zap.String("session_id", s.ID.String()),
		zap.String("job_id", jobID))
	return utils.SendAccepted(c, dto.StartOfflineResponse{JobID: jobID})
}

// Confirm godoc
// @Summary Ответ на запрос подтверждения загрузки
// @Tags Offline
// @Accept json
// @Param id path string true "ID сессии"
// @Param request body dto.OfflineConfirmRequest true "Решение пользователя"
// @Success 204
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/offline/confirm [post]
func (h *OfflineHandler) Confirm(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.OfflineConfirmRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	if err := s.Widget.ConfirmDownload(req.Accept); err != nil {
		return utils.SendError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Cancel godoc
// @Summary Отмена загрузки
// @Tags Offline
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} utils.SuccessResponse{data=dto.CancelOfflineResponse}
// @Router /api/v1/sessions/{id}/offline [delete]
func (h *OfflineHandler) Cancel(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, dto.CancelOfflineResponse{
		Cancelled: s.Commands.CancelOfflineDownload(),
	}, nil)
}

// Status godoc
// @Summary Состояние загрузки
// @Tags Offline
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} utils.SuccessResponse{data=dto.OfflineStatusResponse}
// @Router /api/v1/sessions/{id}/offline [get]
func (h *OfflineHandler) Status(c *fiber.Ctx) error {
	s, err := lookupSession(c, h.registry)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, dto.OfflineStatusResponse{
		State:        s.Widget.DownloadState(),
		Confirmation: s.Widget.PendingConfirmation(),
	}, nil)
}
