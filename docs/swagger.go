// Package docs registers the OpenAPI description served at /swagger/*.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/health": {
            "get": {"tags": ["Health"], "summary": "Проверка живости", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/sessions": {
            "post": {"tags": ["Sessions"], "summary": "Создание виджета карты", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}
        },
        "/api/v1/sessions/{id}": {
            "get": {"tags": ["Sessions"], "summary": "Состояние виджета", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["Sessions"], "summary": "Закрытие виджета", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}}}
        },
        "/api/v1/sessions/{id}/view": {
            "put": {"tags": ["Sessions"], "summary": "Внешнее обновление центра и зума", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/sessions/{id}/zoom": {
            "post": {"tags": ["Sessions"], "summary": "Зум жестом пользователя", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/sessions/{id}/interaction": {
            "post": {"tags": ["Sessions"], "summary": "Начало или конец перетаскивания карты", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}}}
        },
        "/api/v1/sessions/{id}/region": {
            "put": {"tags": ["Sessions"], "summary": "Город и штат для поиска", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}}}
        },
        "/api/v1/sessions/{id}/size": {
            "put": {"tags": ["Sessions"], "summary": "Размер карты в пикселях", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}}}
        },
        "/api/v1/sessions/{id}/style": {
            "put": {"tags": ["Sessions"], "summary": "Стиль тайлов", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}}}
        },
        "/api/v1/sessions/{id}/marker": {
            "put": {"tags": ["Sessions"], "summary": "Показ маркера выбранной точки", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}}}
        },
        "/api/v1/sessions/{id}/search/input": {
            "post": {"tags": ["Search"], "summary": "Текст, набранный в поле поиска", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"202": {"description": "Accepted"}}}
        },
        "/api/v1/sessions/{id}/search/suggestions": {
            "get": {"tags": ["Search"], "summary": "Текущие подсказки", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/sessions/{id}/search/select": {
            "post": {"tags": ["Search"], "summary": "Выбор подсказки", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/sessions/{id}/search-and-center": {
            "post": {"tags": ["Search"], "summary": "Поиск адреса и перелет к нему", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/api/v1/sessions/{id}/click": {
            "post": {"tags": ["Search"], "summary": "Клик по карте", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/sessions/{id}/pending/select": {
            "post": {"tags": ["Search"], "summary": "Выбор почтового индекса для ожидающего адреса", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/sessions/{id}/pending/cancel": {
            "post": {"tags": ["Search"], "summary": "Отказ от выбора индекса", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/sessions/{id}/offline": {
            "get": {"tags": ["Offline"], "summary": "Состояние загрузки", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Offline"], "summary": "Запуск офлайн-загрузки", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"202": {"description": "Accepted"}, "409": {"description": "Conflict"}}},
            "delete": {"tags": ["Offline"], "summary": "Отмена загрузки", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/sessions/{id}/offline/confirm": {
            "post": {"tags": ["Offline"], "summary": "Ответ на запрос подтверждения загрузки", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/tiles/{style}/{z}/{x}/{y}": {
            "get": {"tags": ["Tiles"], "summary": "Сохраненный тайл", "produces": ["image/png", "image/jpeg"], "parameters": [
                {"type": "string", "name": "style", "in": "path", "required": true},
                {"type": "integer", "name": "z", "in": "path", "required": true},
                {"type": "integer", "name": "x", "in": "path", "required": true},
                {"type": "integer", "name": "y", "in": "path", "required": true}
            ], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Geopin Service API",
	Description:      "Встраиваемый виджет карты для форм ввода адреса.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
