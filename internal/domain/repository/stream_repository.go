package repository

import (
	"context"

	"github.com/geopin-service/internal/domain"
)

// StreamRepository - журнал событий виджета и очередь заданий предзагрузки (Redis Streams)
type StreamRepository interface {
	// ConsumeBatch читает до count новых сообщений группы; ожидание ограничено реализацией
	ConsumeBatch(ctx context.Context, stream, group, consumer string, count int) ([]domain.StreamMessage, error)

	AckMessage(ctx context.Context, stream, group, messageID string) error

	// CreateConsumerGroup создает группу (и стрим); повторное создание не ошибка
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// PublishToStream сериализует событие в JSON и добавляет его в стрим
	PublishToStream(ctx context.Context, stream string, event interface{}) error
}
