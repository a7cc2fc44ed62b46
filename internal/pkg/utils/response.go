package utils

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"

	"github.com/geopin-service/internal/pkg/errors"
)

// SuccessResponse - конверт успешного ответа API виджета
type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Error *errors.AppError `json:"error"`
}

// Meta - сведения о списочных ответах
type Meta struct {
	Total int `json:"total"`
	// SessionID - сессия, к которой относится ответ
	SessionID string `json:"session_id,omitempty"`
}

func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return c.JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// SendCreated отвечает 201 на создание сессии
func SendCreated(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(SuccessResponse{Data: data})
}

// SendAccepted отвечает 202 для операций, результат которых приходит позже (загрузка, поиск)
func SendAccepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(SuccessResponse{Data: data})
}

// SendError пишет AppError с его статусом; fiber.Error сохраняет свой код, остальное - 500
func SendError(c *fiber.Ctx, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return c.Status(appErr.StatusCode).JSON(ErrorResponse{Error: appErr})
	}

	var fiberErr *fiber.Error
	if stderrors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: fromFiberError(fiberErr)})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: errors.ErrInternalServer,
	})
}

func fromFiberError(fe *fiber.Error) *errors.AppError {
	var base *errors.AppError
	switch {
	case fe.Code == fiber.StatusNotFound:
		base = errors.ErrRouteNotFound
	case fe.Code == fiber.StatusMethodNotAllowed:
		base = errors.ErrMethodNotAllowed
	case fe.Code >= fiber.StatusInternalServerError:
		return errors.ErrInternalServer
	default:
		base = errors.ErrInvalidRequest
	}
	appErr := base.WithMessage(fe.Message)
	appErr.StatusCode = fe.Code
	return appErr
}
