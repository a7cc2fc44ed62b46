package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/geopin-service/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// в ошибках поле называется так же, как в JSON запроса
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})

	_ = validate.RegisterValidation("tilestyle", func(fl validator.FieldLevel) bool {
		return domain.TileStyle(fl.Field().String()).Valid()
	})
}

// Validate - валидация структуры запроса
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// Describe превращает ошибки валидатора в map поле -> правило для ответа клиенту
func Describe(err error) map[string]interface{} {
	details := make(map[string]interface{})
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		details["error"] = err.Error()
		return details
	}
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule = fmt.Sprintf("%s=%s", rule, fe.Param())
		}
		details[fe.Field()] = rule
	}
	return details
}
