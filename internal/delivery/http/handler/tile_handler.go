package handler

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	apperrors "github.com/geopin-service/internal/pkg/errors"
	"github.com/geopin-service/internal/pkg/utils"
	"github.com/geopin-service/internal/usecase/dto"
)

// TileHandler - раздача тайлов, сохраненных офлайн-загрузкой
type TileHandler struct {
	store  repository.TileStore
	logger *zap.Logger
}

// NewTileHandler - создание нового TileHandler
func NewTileHandler(store repository.TileStore, logger *zap.Logger) *TileHandler {
	return &TileHandler{
		store:  store,
		logger: logger,
	}
}

// GetTile godoc
// @Summary Сохраненный тайл
// @Description Отдает растровый тайл из офлайн-хранилища. 404, если тайл не скачан.
// @Tags Tiles
// @Produce png
// @Produce jpeg
// @Param style path string true "standard, satellite или hybrid"
// @Param z path int true "Зум"
// @Param x path int true "X"
// @Param y path int true "Y"
// @Success 200 {file} binary
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/tiles/{style}/{z}/{x}/{y} [get]
func (h *TileHandler) GetTile(c *fiber.Ctx) error {
	req, err := parseTileRequest(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	style := domain.TileStyle(req.Style)
	tile := domain.TileIndex{Z: req.Z, X: req.X, Y: req.Y}

	data, err := h.store.GetTile(c.UserContext(), style, tile)
	if err != nil {
		if !stderrors.Is(err, apperrors.ErrTileNotFound) {
			h.logger.Error("Failed to read offline tile",
				zap.String("style", string(style)),
				zap.Int("z", tile.Z),
				zap.Int("x", tile.X),
				zap.Int("y", tile.Y),
				zap.Error(err))
		}
		return utils.SendError(c, err)
	}
	if len(data) == 0 {
		return utils.SendError(c, apperrors.ErrTileNotFound)
	}

	c.Set(fiber.HeaderContentType, http.DetectContentType(data))
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(data)
}

func parseTileRequest(c *fiber.Ctx) (dto.TileRequest, error) {
	var req dto.TileRequest
	var err error
	req.Style = c.Params("style")
	if req.Z, err = strconv.Atoi(c.Params("z")); err != nil {
		return req, apperrors.ErrInvalidTileCoordinates
	}
	if req.X, err = strconv.Atoi(c.Params("x")); err != nil {
		return req, apperrors.ErrInvalidTileCoordinates
	}
	if req.Y, err = strconv.Atoi(c.Params("y")); err != nil {
		return req, apperrors.ErrInvalidTileCoordinates
	}

	if !domain.TileStyle(req.Style).Valid() {
		return req, apperrors.ErrInvalidTileStyle
	}
	if err := validate(&req); err != nil {
		return req, apperrors.ErrInvalidTileCoordinates
	}
	if n := 1 << req.Z; req.X >= n || req.Y >= n {
		return req, apperrors.ErrInvalidTileCoordinates
	}
	return req, nil
}
