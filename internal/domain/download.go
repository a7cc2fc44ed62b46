package domain

// DownloadPhase - фаза офлайн-загрузки тайлов
type DownloadPhase string

const (
	DownloadIdle        DownloadPhase = "idle"
	DownloadPreparing   DownloadPhase = "preparing"
	DownloadDownloading DownloadPhase = "downloading"
	DownloadCompleted   DownloadPhase = "completed"
	DownloadErrored     DownloadPhase = "errored"
)

// DownloadState - снимок состояния загрузки, который отдаётся хосту только на чтение
type DownloadState struct {
	Phase     DownloadPhase `json:"phase"`
	Completed int           `json:"completed"`
	Total     int           `json:"total"`
	Message   string        `json:"message,omitempty"`
	JobID     string        `json:"job_id,omitempty"`
}

// Active reports whether a job currently owns the engine.
func (s DownloadState) Active() bool {
	return s.Phase == DownloadPreparing || s.Phase == DownloadDownloading
}

// ConfirmSeverity - уровень предупреждения при подтверждении большой загрузки
type ConfirmSeverity string

const (
	ConfirmNormal ConfirmSeverity = "normal"
	ConfirmHigh   ConfirmSeverity = "high"
)

// ConfirmRequest - единственный вопрос да/нет перед загрузкой большого набора тайлов
type ConfirmRequest struct {
	JobID      string          `json:"job_id"`
	TotalTiles int             `json:"total_tiles"`
	Severity   ConfirmSeverity `json:"severity"`
	Message    string          `json:"message"`
}
