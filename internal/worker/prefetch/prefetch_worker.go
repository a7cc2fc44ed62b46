// Package prefetch downloads tile sets requested over a Redis stream, without a widget session.
package prefetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/usecase"
	"github.com/geopin-service/internal/worker"
)

const (
	maxZoomLevel = 22
	// терминальное состояние задачи должно дожить до публикации результата
	holdTerminalState = time.Hour
	publishTimeout    = 5 * time.Second
)

// Options - параметры фоновой предзагрузки
type Options struct {
	Offline usecase.OfflineOptions
	// AutoConfirmMax - сколько тайлов подтверждается без человека; больше - отказ
	AutoConfirmMax int
	// MaxRetries - попыток при отсутствии сети
	MaxRetries int
	RetryDelay time.Duration
}

// PrefetchWorker читает stream:tiles:prefetch и скачивает тайлы тем же usecase, что и виджет
type PrefetchWorker struct {
	*worker.BaseWorker
	streams repository.StreamRepository
	source  repository.TileSource
	store   repository.TileStore
	opts    Options
}

// NewPrefetchWorker создает новый PrefetchWorker
func NewPrefetchWorker(
	streams repository.StreamRepository,
	source repository.TileSource,
	store repository.TileStore,
	consumerGroup string,
	batchSize int,
	opts Options,
	logger *zap.Logger,
) *PrefetchWorker {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &PrefetchWorker{
		BaseWorker: worker.NewBaseWorker("tile-prefetch", domain.StreamTilesPrefetch, consumerGroup, batchSize, streams, logger),
		streams:    streams,
		source:     source,
		store:      store,
		opts:       opts,
	}
}

// Start запускает воркер
func (w *PrefetchWorker) Start(ctx context.Context) error {
	return w.Consume(ctx, w.handle)
}

func (w *PrefetchWorker) handle(ctx context.Context, msg domain.StreamMessage) error {
	logger := w.Logger()

	event, err := parseMessage(msg)
	if err != nil {
		// битое сообщение подтверждается, чтобы не застревало
		logger.Warn("Failed to parse prefetch request, skipping",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return nil
	}

	done := w.Prefetch(ctx, event)
	if ctx.Err() != nil {
		// воркер останавливается: запрос достанется следующему потребителю
		return ctx.Err()
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := w.streams.PublishToStream(pubCtx, domain.StreamTilesPrefetched, done); err != nil {
		logger.Error("Failed to publish prefetch result",
			zap.String("request_id", event.RequestID.String()),
			zap.Error(err))
	}
	return nil
}

// Prefetch выполняет один запрос и возвращает событие с итогом
func (w *PrefetchWorker) Prefetch(ctx context.Context, event *domain.PrefetchRequestEvent) domain.PrefetchDoneEvent {
	logger := w.Logger().With(zap.String("request_id", event.RequestID.String()))

	opts := w.opts.Offline
	opts.DisplayInterval = holdTerminalState
	if event.HasZoomBand() {
		if *event.MinZoom >= 0 && *event.MaxZoom <= maxZoomLevel {
			opts.MinZoom, opts.MaxZoom = *event.MinZoom, *event.MaxZoom
		} else {
			logger.Warn("Ignoring out of range zoom band",
				zap.Int("min_zoom", *event.MinZoom),
				zap.Int("max_zoom", *event.MaxZoom))
		}
	}

	style := event.Style
	if style == "" {
		style = domain.TileStyleStandard
	}

	var declined int
	confirmer := usecase.ConfirmerFunc(func(ctx context.Context, req domain.ConfirmRequest) (bool, error) {
		if req.TotalTiles > w.opts.AutoConfirmMax {
			declined = req.TotalTiles
			return false, nil
		}
		return true, nil
	})

	for attempt := 1; ; attempt++ {
		uc := usecase.NewOfflineTileUseCase(w.source, w.store, confirmer, opts, nil, nil, logger)
		err := uc.Run(ctx, style, event.Bounds)
		state := uc.State()
		uc.Close()

		if errors.Is(err, usecase.ErrOffline) && attempt < w.opts.MaxRetries {
			logger.Info("Tile source offline, retrying prefetch", zap.Int("attempt", attempt))
			if w.wait(ctx, time.Duration(attempt)*w.opts.RetryDelay) {
				continue
			}
		}

		done := domain.PrefetchDoneEvent{RequestID: event.RequestID, State: state}
		switch {
		case err == nil:
			logger.Info("Prefetch completed", zap.Int("tiles", state.Total))
		case errors.Is(err, usecase.ErrDeclined):
			done.Error = fmt.Sprintf("%d tiles exceed the auto-confirm limit of %d", declined, w.opts.AutoConfirmMax)
			logger.Warn("Prefetch declined", zap.Int("tiles", declined), zap.Int("limit", w.opts.AutoConfirmMax))
		default:
			done.Error = err.Error()
			logger.Warn("Prefetch failed", zap.Error(err))
		}
		return done
	}
}

// wait returns false when the worker is stopping.
func (w *PrefetchWorker) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func parseMessage(msg domain.StreamMessage) (*domain.PrefetchRequestEvent, error) {
	if msg.Data == "" {
		return nil, fmt.Errorf("missing 'data' field")
	}
	var event domain.PrefetchRequestEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}
