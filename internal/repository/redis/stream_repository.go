package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
)

// payloadField - поле записи стрима с JSON события
const payloadField = "data"

// StreamOptions настраивает чтение и публикацию событий виджета
type StreamOptions struct {
	// BlockTimeout ограничивает ожидание новых сообщений в ConsumeBatch
	BlockTimeout time.Duration
	// MaxLen - приблизительный предел длины стрима при публикации; 0 - без ограничения
	MaxLen int64
}

type streamRepository struct {
	client *redis.Client
	opts   StreamOptions
	logger *zap.Logger
}

func NewStreamRepository(client *redis.Client, opts StreamOptions, logger *zap.Logger) repository.StreamRepository {
	return &streamRepository{
		client: client,
		opts:   opts,
		logger: logger.Named("streams"),
	}
}

// CreateConsumerGroup создает группу с позиции "$" (только новые события); существующая группа не ошибка
func (r *streamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			r.logger.Debug("Consumer group already exists",
				zap.String("stream", stream),
				zap.String("group", group))
			return nil
		}
		return fmt.Errorf("create consumer group %s on %s: %w", group, stream, err)
	}

	r.logger.Info("Consumer group created",
		zap.String("stream", stream),
		zap.String("group", group))
	return nil
}

// ConsumeBatch читает до count новых сообщений, ожидая не дольше BlockTimeout.
// Пустой результат без ошибки - сообщений нет.
func (r *streamRepository) ConsumeBatch(ctx context.Context, stream, group, consumer string, count int) ([]domain.StreamMessage, error) {
	result, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    int64(count),
		Block:    r.opts.BlockTimeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read %s as %s/%s: %w", stream, group, consumer, err)
	}

	var messages []domain.StreamMessage
	for _, s := range result {
		for _, msg := range s.Messages {
			data, ok := msg.Values[payloadField].(string)
			if !ok {
				// без события сообщение не обработать: подтверждаем, чтобы не висело в PEL
				r.logger.Warn("Dropping stream entry without payload",
					zap.String("stream", stream),
					zap.String("message_id", msg.ID))
				if err := r.client.XAck(ctx, stream, group, msg.ID).Err(); err != nil {
					r.logger.Warn("Failed to ack entry without payload", zap.String("message_id", msg.ID), zap.Error(err))
				}
				continue
			}
			messages = append(messages, domain.StreamMessage{ID: msg.ID, Data: data})
		}
	}

	return messages, nil
}

func (r *streamRepository) AckMessage(ctx context.Context, stream, group, messageID string) error {
	if err := r.client.XAck(ctx, stream, group, messageID).Err(); err != nil {
		return fmt.Errorf("ack %s on %s: %w", messageID, stream, err)
	}
	return nil
}

// PublishToStream кладет событие JSON-ом в поле data, обрезая стрим до MaxLen
func (r *streamRepository) PublishToStream(ctx context.Context, stream string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %T for %s: %w", event, stream, err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{payloadField: string(payload)},
	}
	if r.opts.MaxLen > 0 {
		args.MaxLen = r.opts.MaxLen
		args.Approx = true
	}

	id, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}

	r.logger.Debug("Event published",
		zap.String("stream", stream),
		zap.String("message_id", id),
		zap.Int("bytes", len(payload)))
	return nil
}
