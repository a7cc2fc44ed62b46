package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain/repository"
)

const (
	emptyQueueSleep = 100 * time.Millisecond // пауза если очередь пуста
	errorBackoff    = time.Second            // пауза после ошибки чтения
)

// BaseWorker - цикл чтения consumer group, общий для воркеров стримов
type BaseWorker struct {
	name      string
	stream    string
	group     string
	consumer  string
	batchSize int
	streams   repository.StreamRepository
	logger    *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewBaseWorker создает новый BaseWorker. Имя потребителя - hostname-pid.
func NewBaseWorker(name, stream, group string, batchSize int, streams repository.StreamRepository, logger *zap.Logger) *BaseWorker {
	hostname, _ := os.Hostname()
	if batchSize <= 0 {
		batchSize = 1
	}
	return &BaseWorker{
		name:      name,
		stream:    stream,
		group:     group,
		consumer:  fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		batchSize: batchSize,
		streams:   streams,
		logger:    logger.With(zap.String("worker", name)),
		stopChan:  make(chan struct{}),
	}
}

// Name возвращает имя воркера
func (w *BaseWorker) Name() string {
	return w.name
}

// Stop останавливает цикл чтения; повторный вызов ничего не делает
func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker")
		close(w.stopChan)
	})
	return nil
}

// Logger возвращает логгер
func (w *BaseWorker) Logger() *zap.Logger {
	return w.logger
}

// Consume читает стрим пачками и передает сообщения handle до Stop или отмены ctx
func (w *BaseWorker) Consume(ctx context.Context, handle MessageHandler) error {
	w.logger.Info("Starting stream consumer",
		zap.String("stream", w.stream),
		zap.String("consumer_group", w.group),
		zap.String("consumer_name", w.consumer),
		zap.Int("batch_size", w.batchSize))

	if err := w.streams.CreateConsumerGroup(ctx, w.stream, w.group); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker stopped")
			return nil
		case <-ctx.Done():
			w.logger.Info("Context cancelled")
			return ctx.Err()
		default:
		}

		processed, err := w.processBatch(ctx, handle)
		if err != nil {
			w.logger.Error("Failed to process batch", zap.Error(err))
			w.pause(ctx, errorBackoff)
			continue
		}
		if processed == 0 {
			w.pause(ctx, emptyQueueSleep)
		}
	}
}

func (w *BaseWorker) processBatch(ctx context.Context, handle MessageHandler) (int, error) {
	messages, err := w.streams.ConsumeBatch(ctx, w.stream, w.group, w.consumer, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}

	for _, msg := range messages {
		if err := handle(ctx, msg); err != nil {
			w.logger.Warn("Message left pending",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}
		if err := w.streams.AckMessage(ctx, w.stream, w.group, msg.ID); err != nil {
			// не критично - сообщение будет переобработано
			w.logger.Error("Failed to ack message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	return len(messages), nil
}

func (w *BaseWorker) pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-w.stopChan:
	case <-ctx.Done():
	}
}
