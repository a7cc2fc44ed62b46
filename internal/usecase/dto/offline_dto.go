package dto

import "github.com/geopin-service/internal/domain"

// OfflineConfirmRequest - ответ пользователя на запрос подтверждения загрузки
type OfflineConfirmRequest struct {
	Accept bool `json:"accept"`
}

// StartOfflineResponse - идентификатор запущенной задачи
type StartOfflineResponse struct {
	JobID string `json:"job_id"`
}

// TileRequest - параметры запроса сохраненного тайла
type TileRequest struct {
	Style string `validate:"required,tilestyle"`
	Z     int    `validate:"min=0,max=22"`
	X     int    `validate:"min=0"`
	Y     int    `validate:"min=0"`
}

// OfflineStatusResponse - состояние загрузки и открытый запрос подтверждения
type OfflineStatusResponse struct {
	State        domain.DownloadState   `json:"state"`
	Confirmation *domain.ConfirmRequest `json:"confirmation,omitempty"`
}

type CancelOfflineResponse struct {
	Cancelled bool `json:"cancelled"`
}
