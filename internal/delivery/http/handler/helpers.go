package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/geopin-service/internal/mapwidget"
	apperrors "github.com/geopin-service/internal/pkg/errors"
	"github.com/geopin-service/internal/pkg/validator"
)

// parseBody разбирает JSON тела запроса и валидирует его
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.ErrInvalidRequest.WithMessage("Invalid request body")
	}
	return validate(req)
}

func validate(req interface{}) error {
	if err := validator.Validate(req); err != nil {
		return apperrors.ErrInvalidRequest.WithDetails(validator.Describe(err))
	}
	return nil
}

// lookupSession находит сессию по параметру :id
func lookupSession(c *fiber.Ctx, registry *mapwidget.Registry) (*mapwidget.Session, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, apperrors.ErrInvalidRequest.WithMessage("Invalid session id")
	}
	return registry.Get(id)
}
