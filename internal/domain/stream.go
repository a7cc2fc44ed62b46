package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stream names
const (
	StreamLocationSelected = "stream:map:location_selected"
	StreamDownloadState    = "stream:map:download_state"
	StreamTilesPrefetch    = "stream:tiles:prefetch"
	StreamTilesPrefetched  = "stream:tiles:prefetch:done"
)

// LocationSelectedEvent - хост получил итоговую локацию из виджета
type LocationSelectedEvent struct {
	SessionID  uuid.UUID        `json:"session_id"`
	Location   ResolvedLocation `json:"location"`
	SelectedAt time.Time        `json:"selected_at"`
}

// HasStreetAddress проверяет наличие полного адреса (улица + дом)
func (e *LocationSelectedEvent) HasStreetAddress() bool {
	return e.Location.Street != "" && e.Location.HouseNumber != ""
}

// DownloadStateEvent - терминальное состояние офлайн-загрузки сессии
type DownloadStateEvent struct {
	SessionID uuid.UUID     `json:"session_id"`
	State     DownloadState `json:"state"`
	At        time.Time     `json:"at"`
}

// PrefetchRequestEvent - входящий запрос на фоновую предзагрузку тайлов
type PrefetchRequestEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	Bounds    Bounds    `json:"bounds"`
	Style     TileStyle `json:"style,omitempty"`
	MinZoom   *int      `json:"min_zoom,omitempty"`
	MaxZoom   *int      `json:"max_zoom,omitempty"`
}

// HasZoomBand reports whether the request overrides the default zoom band.
func (e *PrefetchRequestEvent) HasZoomBand() bool {
	return e.MinZoom != nil && e.MaxZoom != nil && *e.MinZoom <= *e.MaxZoom
}

// PrefetchDoneEvent - результат фоновой предзагрузки
type PrefetchDoneEvent struct {
	RequestID uuid.UUID     `json:"request_id"`
	State     DownloadState `json:"state"`
	Error     string        `json:"error,omitempty"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
