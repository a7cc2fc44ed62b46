package dto

import "github.com/geopin-service/internal/domain"

// CreateSessionRequest - запрос на создание виджета карты
type CreateSessionRequest struct {
	Lat        float64 `json:"lat" validate:"min=-90,max=90"`
	Lng        float64 `json:"lng" validate:"min=-180,max=180"`
	Zoom       int     `json:"zoom" validate:"min=0,max=22"`
	City       string  `json:"city,omitempty" validate:"max=100"`
	State      string  `json:"state,omitempty" validate:"max=100"`
	Style      string  `json:"style,omitempty" validate:"omitempty,tilestyle"`
	Width      int     `json:"width,omitempty" validate:"omitempty,min=1,max=8192"`
	Height     int     `json:"height,omitempty" validate:"omitempty,min=1,max=8192"`
	ShowMarker *bool   `json:"show_marker,omitempty"`
}

// CreateSessionResponse - ответ с идентификатором сессии
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// SetViewRequest - внешнее обновление центра и зума. Без координат обновляется только зум.
type SetViewRequest struct {
	Lat  *float64 `json:"lat,omitempty" validate:"omitempty,min=-90,max=90"`
	Lng  *float64 `json:"lng,omitempty" validate:"omitempty,min=-180,max=180"`
	Zoom int      `json:"zoom" validate:"min=0,max=22"`
}

// Point returns the requested center, or NoPoint when either coordinate is missing.
func (r SetViewRequest) Point() domain.GeoPoint {
	if r.Lat == nil || r.Lng == nil {
		return domain.NoPoint()
	}
	return domain.NewGeoPoint(*r.Lat, *r.Lng)
}

// UserZoomRequest - зум жестом пользователя (колесо мыши)
type UserZoomRequest struct {
	Zoom int `json:"zoom" validate:"min=0,max=22"`
}

// InteractionRequest - начало или конец перетаскивания карты.
// Для end передается центр, на котором рендерер остановился.
type InteractionRequest struct {
	Phase string   `json:"phase" validate:"required,oneof=begin end"`
	Lat   *float64 `json:"lat,omitempty" validate:"omitempty,min=-90,max=90"`
	Lng   *float64 `json:"lng,omitempty" validate:"omitempty,min=-180,max=180"`
}

func (r InteractionRequest) Point() domain.GeoPoint {
	if r.Lat == nil || r.Lng == nil {
		return domain.NoPoint()
	}
	return domain.NewGeoPoint(*r.Lat, *r.Lng)
}

// RegionRequest - активный город и штат для поиска
type RegionRequest struct {
	City  string `json:"city" validate:"max=100"`
	State string `json:"state" validate:"max=100"`
}

// SizeRequest - размер области карты в пикселях
type SizeRequest struct {
	Width  int `json:"width" validate:"required,min=1,max=8192"`
	Height int `json:"height" validate:"required,min=1,max=8192"`
}

type StyleRequest struct {
	Style string `json:"style" validate:"required,tilestyle"`
}

type MarkerRequest struct {
	Show bool `json:"show"`
}

// ClickRequest - клик по карте
type ClickRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

func (r ClickRequest) Point() domain.GeoPoint {
	return domain.NewGeoPoint(r.Lat, r.Lng)
}

// ViewResponse - решение контроллера камеры для рендерера
type ViewResponse struct {
	Action string          `json:"action"`
	Center domain.GeoPoint `json:"center"`
	Zoom   int             `json:"zoom"`
}
