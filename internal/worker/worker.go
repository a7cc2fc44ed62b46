package worker

import (
	"context"

	"github.com/geopin-service/internal/domain"
)

// Worker интерфейс для всех воркеров
type Worker interface {
	// Start блокируется до Stop или отмены ctx
	Start(ctx context.Context) error

	// Stop останавливает воркер
	Stop() error

	// Name возвращает имя воркера
	Name() string
}

// MessageHandler обрабатывает одно сообщение стрима.
// nil - сообщение подтверждается; ошибка оставляет его в pending для повторной доставки.
type MessageHandler func(ctx context.Context, msg domain.StreamMessage) error
