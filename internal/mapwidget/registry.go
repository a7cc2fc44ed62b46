package mapwidget

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	apperrors "github.com/geopin-service/internal/pkg/errors"
	"github.com/geopin-service/internal/pkg/metrics"
)

const publishTimeout = 5 * time.Second

// Session - виджет, принадлежащий одному клиенту HTTP API
type Session struct {
	ID        uuid.UUID
	Widget    *Widget
	Commands  Commands
	CreatedAt time.Time

	lastSeen atomic.Int64
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns the time of the last access through the registry.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Registry хранит сессии виджетов и удаляет неактивные
type Registry struct {
	deps     Deps
	defaults Options
	streams  repository.StreamRepository
	idleTTL  time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry создает реестр. streams может быть nil: тогда события никуда не публикуются.
// defaults задает настройки движков (Viewport, Offline, Search) для новых сессий.
func NewRegistry(deps Deps, defaults Options, streams repository.StreamRepository, idleTTL time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		deps:     deps,
		defaults: defaults,
		streams:  streams,
		idleTTL:  idleTTL,
		logger:   logger,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create создает сессию. Заданные в opts параметры движков игнорируются, берутся из реестра.
func (r *Registry) Create(opts Options) *Session {
	opts.Viewport = r.defaults.Viewport
	opts.Offline = r.defaults.Offline
	opts.Search = r.defaults.Search

	id := uuid.New()
	log := r.logger.With(zap.String("session_id", id.String()))

	deps := r.deps
	deps.Logger = log

	w, commands := New(opts, deps, Callbacks{
		OnLocationSelect: func(loc domain.ResolvedLocation) {
			r.publish(log, domain.StreamLocationSelected, domain.LocationSelectedEvent{
				SessionID:  id,
				Location:   loc,
				SelectedAt: time.Now(),
			})
		},
		OnDownloadStateChange: func(state domain.DownloadState) {
			if state.Phase != domain.DownloadCompleted && state.Phase != domain.DownloadErrored {
				return
			}
			r.publish(log, domain.StreamDownloadState, domain.DownloadStateEvent{
				SessionID: id,
				State:     state,
				At:        time.Now(),
			})
		},
	})

	s := &Session{
		ID:        id,
		Widget:    w,
		Commands:  commands,
		CreatedAt: time.Now(),
	}
	s.touch()

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	metrics.ActiveSessions.Inc()

	log.Info("Map session created",
		zap.Float64("lat", opts.Center.Lat),
		zap.Float64("lng", opts.Center.Lng),
		zap.Int("zoom", opts.Zoom))
	return s
}

func (r *Registry) publish(log *zap.Logger, stream string, event interface{}) {
	if r.streams == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.streams.PublishToStream(ctx, stream, event); err != nil {
		log.Warn("Failed to publish widget event", zap.String("stream", stream), zap.Error(err))
	}
}

// Get возвращает сессию и продлевает ее жизнь
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// Delete закрывает сессию
func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	s.Widget.Close()
	metrics.ActiveSessions.Dec()
	r.logger.Info("Map session closed", zap.String("session_id", id.String()))
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Expire закрывает сессии, к которым не обращались дольше idleTTL. Возвращает их число.
func (r *Registry) Expire(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}

	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if now.Sub(s.LastSeen()) > r.idleTTL {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Widget.Close()
		metrics.ActiveSessions.Dec()
	}
	if len(expired) > 0 {
		r.logger.Info("Expired idle map sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run периодически удаляет неактивные сессии до отмены ctx
func (r *Registry) Run(ctx context.Context) {
	if r.idleTTL <= 0 {
		return
	}
	interval := max(r.idleTTL/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Expire(now)
		}
	}
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Widget.Close()
		metrics.ActiveSessions.Dec()
	}
}
