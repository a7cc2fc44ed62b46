package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geopin-service/internal/config"
	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	apperrors "github.com/geopin-service/internal/pkg/errors"
	"github.com/geopin-service/internal/pkg/metrics"
	"github.com/geopin-service/internal/pkg/tilemath"
	"github.com/geopin-service/internal/pkg/utils"
)

// Confirmer - единственный вопрос да/нет перед загрузкой большого набора тайлов
type Confirmer interface {
	Confirm(ctx context.Context, req domain.ConfirmRequest) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, req domain.ConfirmRequest) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, req domain.ConfirmRequest) (bool, error) {
	return f(ctx, req)
}

// OfflineOptions - параметры офлайн-загрузки
type OfflineOptions struct {
	MinZoom          int
	MaxZoom          int
	ConfirmThreshold int
	HighThreshold    int
	BatchSize        int
	ProgressEvery    int
	DisplayInterval  time.Duration
}

// DefaultOfflineOptions: zoom 14..18, confirm above 2000 tiles, escalate above 10000, 12 in flight.
func DefaultOfflineOptions() OfflineOptions {
	return OfflineOptions{
		MinZoom:          14,
		MaxZoom:          18,
		ConfirmThreshold: 2000,
		HighThreshold:    10000,
		BatchSize:        12,
		ProgressEvery:    5,
		DisplayInterval:  3 * time.Second,
	}
}

// OfflineOptionsFromConfig maps the config section onto options.
func OfflineOptionsFromConfig(cfg *config.OfflineConfig) OfflineOptions {
	return OfflineOptions{
		MinZoom:          cfg.MinZoom,
		MaxZoom:          cfg.MaxZoom,
		ConfirmThreshold: cfg.ConfirmThreshold,
		HighThreshold:    cfg.HighThreshold,
		BatchSize:        cfg.BatchSize,
		ProgressEvery:    cfg.ProgressEvery,
		DisplayInterval:  cfg.DisplayInterval,
	}
}

// OfflineTileUseCase - загрузка набора тайлов видимой области для офлайн-работы.
// DownloadState принадлежит только этому usecase; наружу уходят снимки.
type OfflineTileUseCase struct {
	source    repository.TileSource
	store     repository.TileStore
	confirmer Confirmer
	opts      OfflineOptions
	logger    *zap.Logger

	states   *notifier[domain.DownloadState]
	confirms *notifier[domain.ConfirmRequest]

	mu         sync.Mutex
	state      domain.DownloadState
	jobID      string
	cancelJob  context.CancelFunc
	answer     chan bool
	pendingReq *domain.ConfirmRequest
	resetTimer *time.Timer
}

// NewOfflineTileUseCase создает usecase. Если confirmer == nil, подтверждение ждется через Confirm().
// onState получает каждый снимок состояния, onConfirm - запрос подтверждения (оба могут быть nil).
func NewOfflineTileUseCase(
	source repository.TileSource,
	store repository.TileStore,
	confirmer Confirmer,
	opts OfflineOptions,
	onState func(domain.DownloadState),
	onConfirm func(domain.ConfirmRequest),
	logger *zap.Logger,
) *OfflineTileUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 1
	}
	uc := &OfflineTileUseCase{
		source:    source,
		store:     store,
		confirmer: confirmer,
		opts:      opts,
		logger:    logger,
		state:     domain.DownloadState{Phase: domain.DownloadIdle},
	}
	if onState != nil {
		uc.states = newNotifier(onState)
	}
	if onConfirm != nil {
		uc.confirms = newNotifier(onConfirm)
	}
	return uc
}

// Close stops callback delivery and cancels a running job.
func (uc *OfflineTileUseCase) Close() {
	uc.Cancel()
	uc.mu.Lock()
	if uc.resetTimer != nil {
		uc.resetTimer.Stop()
	}
	uc.mu.Unlock()
	uc.states.Close()
	uc.confirms.Close()
}

// State returns the current snapshot.
func (uc *OfflineTileUseCase) State() domain.DownloadState {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.state
}

// PendingConfirmation returns the open confirmation request, if any.
func (uc *OfflineTileUseCase) PendingConfirmation() *domain.ConfirmRequest {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.pendingReq == nil {
		return nil
	}
	req := *uc.pendingReq
	return &req
}

// Start запускает загрузку в фоне и сразу возвращает ID задачи.
// Задача не зависит от ctx вызывающего: остановить ее можно только через Cancel.
// Границы фиксируются в момент вызова, изменение видимой области не меняет идущую задачу.
func (uc *OfflineTileUseCase) Start(ctx context.Context, style domain.TileStyle, bounds domain.Bounds) (string, error) {
	j, err := uc.begin(context.WithoutCancel(ctx))
	if err != nil {
		return "", err
	}
	go func() {
		_ = uc.execute(j, style, bounds)
	}()
	return j.id, nil
}

// Run выполняет загрузку синхронно; отмена ctx прерывает задачу.
// Возвращает ErrOffline, ErrDeclined, ErrCancelled, ошибку Confirmer или nil.
func (uc *OfflineTileUseCase) Run(ctx context.Context, style domain.TileStyle, bounds domain.Bounds) error {
	j, err := uc.begin(ctx)
	if err != nil {
		return err
	}
	return uc.execute(j, style, bounds)
}

type offlineJob struct {
	ctx    context.Context
	id     string
	cancel context.CancelFunc
}

func (uc *OfflineTileUseCase) begin(ctx context.Context) (offlineJob, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.state.Active() {
		return offlineJob{}, apperrors.ErrDownloadInProgress
	}
	if uc.resetTimer != nil {
		uc.resetTimer.Stop()
		uc.resetTimer = nil
	}

	jobCtx, cancel := context.WithCancel(ctx)
	uc.jobID = uuid.NewString()
	uc.cancelJob = cancel
	uc.setStateLocked(domain.DownloadState{Phase: domain.DownloadPreparing, JobID: uc.jobID})

	uc.logger.Info("Offline download started", zap.String("job_id", uc.jobID))
	return offlineJob{ctx: jobCtx, id: uc.jobID, cancel: cancel}, nil
}

func (uc *OfflineTileUseCase) execute(j offlineJob, style domain.TileStyle, bounds domain.Bounds) (err error) {
	ctx, jobID := j.ctx, j.id
	defer j.cancel()
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("Offline download panicked", zap.String("job_id", jobID), zap.Any("panic", r))
			uc.finish(jobID, domain.DownloadErrored, "Erro inesperado ao baixar o mapa")
			err = fmt.Errorf("offline download: %v", r)
		}
	}()

	if !style.Valid() {
		uc.finish(jobID, domain.DownloadErrored, "Estilo de mapa desconhecido")
		return apperrors.ErrInvalidTileStyle
	}
	if !domain.NewGeoPoint(bounds.South, bounds.West).Valid() || !domain.NewGeoPoint(bounds.North, bounds.East).Valid() {
		uc.finish(jobID, domain.DownloadErrored, "Área visível do mapa indisponível")
		return apperrors.ErrInvalidCoordinates
	}

	if !uc.source.Online(ctx) {
		if ctx.Err() != nil {
			return uc.abandon(jobID)
		}
		uc.finish(jobID, domain.DownloadErrored, "Sem conexão com a internet. Conecte-se para baixar o mapa offline.")
		return ErrOffline
	}

	ranges := tilemath.RangesForBand(bounds, uc.opts.MinZoom, uc.opts.MaxZoom)
	total := tilemath.TotalTiles(ranges)

	if total > uc.opts.ConfirmThreshold {
		accepted, err := uc.confirm(ctx, jobID, total)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrCancelled) {
				return uc.abandon(jobID)
			}
			uc.logger.Error("Offline download confirmation failed", zap.String("job_id", jobID), zap.Error(err))
			uc.finish(jobID, domain.DownloadErrored, "Não foi possível confirmar o download. Tente novamente.")
			return fmt.Errorf("confirm offline download: %w", err)
		}
		if !accepted {
			uc.logger.Info("Offline download declined", zap.String("job_id", jobID), zap.Int("total", total))
			uc.reset(jobID)
			return ErrDeclined
		}
	}

	if !uc.transition(jobID, domain.DownloadState{Phase: domain.DownloadDownloading, Total: total, JobID: jobID}) {
		return ErrCancelled
	}

	// тайлы перечисляются лениво: в памяти только текущий пакет
	for batch := range tilemath.Batches(ranges, uc.opts.BatchSize) {
		if ctx.Err() != nil {
			return uc.abandon(jobID)
		}

		var g errgroup.Group
		for _, tile := range batch {
			g.Go(func() error {
				// токен отмены проверяется перед каждым запросом
				if ctx.Err() != nil {
					return ctx.Err()
				}
				uc.fetchTile(ctx, style, tile)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				uc.tileDone(jobID)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return uc.abandon(jobID)
		}
	}

	if ctx.Err() != nil {
		return uc.abandon(jobID)
	}

	uc.finish(jobID, domain.DownloadCompleted, fmt.Sprintf("%d tiles salvos para uso offline", total))
	return nil
}

// fetchTile: обычный запрос, затем один разрешающий повтор. Неудача не прерывает загрузку.
func (uc *OfflineTileUseCase) fetchTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex) {
	data, err := uc.source.Fetch(ctx, style, tile, repository.FetchStandard)
	outcome := "ok"
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		uc.logger.Debug("Tile fetch failed, retrying permissively",
			zap.Int("z", tile.Z), zap.Int("x", tile.X), zap.Int("y", tile.Y), zap.Error(err))
		outcome = "fallback"
		data, err = uc.source.Fetch(ctx, style, tile, repository.FetchPermissive)
		if err != nil {
			metrics.TileFetchTotal.WithLabelValues(string(style), "failed").Inc()
			return
		}
	}
	if !utils.IsImage(data) {
		uc.logger.Debug("Tile source returned a non-image body",
			zap.Int("z", tile.Z), zap.Int("x", tile.X), zap.Int("y", tile.Y), zap.Int("bytes", len(data)))
		metrics.TileFetchTotal.WithLabelValues(string(style), "failed").Inc()
		return
	}
	metrics.TileFetchTotal.WithLabelValues(string(style), outcome).Inc()

	if ctx.Err() != nil {
		return
	}
	if err := uc.store.SetTile(ctx, style, tile, data); err != nil {
		uc.logger.Warn("Failed to store tile", zap.Error(err))
	}
}

func (uc *OfflineTileUseCase) confirm(ctx context.Context, jobID string, total int) (bool, error) {
	req := domain.ConfirmRequest{
		JobID:      jobID,
		TotalTiles: total,
		Severity:   domain.ConfirmNormal,
		Message:    fmt.Sprintf("Serão baixados %d tiles. Deseja continuar?", total),
	}
	if total > uc.opts.HighThreshold {
		req.Severity = domain.ConfirmHigh
		req.Message = fmt.Sprintf("Atenção: área muito grande (%d tiles). O download pode demorar e consumir muitos dados. Deseja continuar?", total)
	}

	uc.mu.Lock()
	if uc.jobID != jobID {
		uc.mu.Unlock()
		return false, ErrCancelled
	}
	uc.setStateLocked(domain.DownloadState{Phase: domain.DownloadPreparing, Total: total, Message: req.Message, JobID: jobID})
	answer := make(chan bool, 1)
	if uc.confirmer == nil {
		uc.answer = answer
		uc.pendingReq = &req
	}
	uc.mu.Unlock()

	uc.confirms.Publish(req)

	if uc.confirmer != nil {
		return uc.confirmer.Confirm(ctx, req)
	}

	defer func() {
		uc.mu.Lock()
		if uc.answer == answer {
			uc.answer = nil
			uc.pendingReq = nil
		}
		uc.mu.Unlock()
	}()

	select {
	case accepted := <-answer:
		return accepted, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Confirm отвечает на открытый запрос подтверждения
func (uc *OfflineTileUseCase) Confirm(accept bool) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.answer == nil {
		return apperrors.ErrNoConfirmationPending
	}
	uc.answer <- accept
	uc.answer = nil
	uc.pendingReq = nil
	return nil
}

// Cancel немедленно возвращает состояние в Idle и прерывает запросы. Отмена не является ошибкой.
func (uc *OfflineTileUseCase) Cancel() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.cancelJob == nil || !uc.state.Active() {
		return false
	}
	uc.cancelJob()
	uc.logger.Info("Offline download cancelled",
		zap.String("job_id", uc.jobID),
		zap.Int("completed", uc.state.Completed),
		zap.Int("total", uc.state.Total))
	metrics.OfflineJobsTotal.WithLabelValues("cancelled").Inc()

	uc.jobID = ""
	uc.cancelJob = nil
	uc.answer = nil
	uc.pendingReq = nil
	uc.setStateLocked(domain.DownloadState{Phase: domain.DownloadIdle})
	return true
}

func (uc *OfflineTileUseCase) tileDone(jobID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	// результаты отмененной задачи отбрасываются
	if uc.jobID != jobID || uc.state.Phase != domain.DownloadDownloading {
		return
	}
	uc.state.Completed++
	if uc.state.Completed%uc.opts.ProgressEvery == 0 || uc.state.Completed == uc.state.Total {
		uc.states.Publish(uc.state)
	}
}

func (uc *OfflineTileUseCase) transition(jobID string, next domain.DownloadState) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.jobID != jobID {
		return false
	}
	uc.setStateLocked(next)
	return true
}

// finish переводит задачу в Completed/Errored и планирует сброс в Idle
func (uc *OfflineTileUseCase) finish(jobID string, phase domain.DownloadPhase, message string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.jobID != jobID {
		return
	}

	next := uc.state
	next.Phase = phase
	next.Message = message
	uc.setStateLocked(next)
	uc.cancelJob = nil
	metrics.OfflineJobsTotal.WithLabelValues(string(phase)).Inc()

	if phase == domain.DownloadErrored {
		uc.logger.Warn("Offline download failed", zap.String("job_id", jobID), zap.String("message", message))
	} else {
		uc.logger.Info("Offline download completed", zap.String("job_id", jobID), zap.Int("total", next.Total))
	}

	uc.resetTimer = time.AfterFunc(uc.opts.DisplayInterval, func() {
		uc.reset(jobID)
	})
}

// abandon - контекст задачи отменен не через Cancel (например, остановка воркера)
func (uc *OfflineTileUseCase) abandon(jobID string) error {
	uc.reset(jobID)
	return ErrCancelled
}

func (uc *OfflineTileUseCase) reset(jobID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.jobID != jobID {
		return
	}
	if uc.cancelJob != nil {
		uc.cancelJob()
	}
	uc.jobID = ""
	uc.cancelJob = nil
	uc.resetTimer = nil
	uc.setStateLocked(domain.DownloadState{Phase: domain.DownloadIdle})
}

func (uc *OfflineTileUseCase) setStateLocked(next domain.DownloadState) {
	uc.state = next
	uc.states.Publish(next)
}

// IsTerminal reports whether err ends a job without being a failure the user should see.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrDeclined)
}
