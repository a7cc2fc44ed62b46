package mapwidget_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/mapwidget"
	apperrors "github.com/geopin-service/internal/pkg/errors"
)

type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) ConsumeBatch(ctx context.Context, stream, group, consumer string, count int) ([]domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) AckMessage(ctx context.Context, stream, group, messageID string) error {
	return m.Called(ctx, stream, group, messageID).Error(0)
}

func (m *MockStreamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	return m.Called(ctx, stream, group).Error(0)
}

func (m *MockStreamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	return m.Called(ctx, stream, data).Error(0)
}

func newRegistry(t *testing.T, geocoder *MockGeocodingRepository, streams *MockStreamRepository, idleTTL time.Duration) *mapwidget.Registry {
	t.Helper()
	deps := mapwidget.Deps{
		Geocoder: geocoder,
		Postal:   &MockPostalCodeRepository{},
		Tiles:    staticTileSource{},
		Store:    &memStore{},
	}
	var sr repository.StreamRepository
	if streams != nil {
		sr = streams
	}
	r := mapwidget.NewRegistry(deps, testOptions(), sr, idleTTL, zap.NewNop())
	t.Cleanup(r.Close)
	return r
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := newRegistry(t, &MockGeocodingRepository{}, nil, time.Minute)

	s := r.Create(mapwidget.Options{Center: praca, Zoom: 14})
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 14, got.Widget.Snapshot().Viewport.Zoom)

	_, err = r.Get(uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	require.NoError(t, r.Delete(s.ID))
	assert.Zero(t, r.Len())
	assert.ErrorIs(t, r.Delete(s.ID), apperrors.ErrSessionNotFound)
}

func TestRegistry_Expire(t *testing.T) {
	r := newRegistry(t, &MockGeocodingRepository{}, nil, time.Minute)

	idle := r.Create(mapwidget.Options{Center: praca, Zoom: 14})
	assert.Zero(t, r.Expire(time.Now()))
	assert.Equal(t, 1, r.Len())

	assert.Equal(t, 1, r.Expire(time.Now().Add(2*time.Minute)))
	_, err := r.Get(idle.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestRegistry_PublishesSelectedLocation(t *testing.T) {
	geocoder := &MockGeocodingRepository{}
	streams := &MockStreamRepository{}
	clicked := domain.GeoPoint{Lat: -25.4300, Lng: -49.2700}
	geocoder.On("Reverse", mock.Anything, clicked).Return(nil, errors.New("timeout"))

	published := make(chan domain.LocationSelectedEvent, 1)
	streams.On("PublishToStream", mock.Anything, domain.StreamLocationSelected, mock.AnythingOfType("domain.LocationSelectedEvent")).
		Run(func(args mock.Arguments) {
			published <- args.Get(2).(domain.LocationSelectedEvent)
		}).
		Return(errors.New("redis unavailable")).Once()

	r := newRegistry(t, geocoder, streams, time.Minute)
	s := r.Create(mapwidget.Options{Center: praca, Zoom: 15})

	loc, err := s.Widget.Click(context.Background(), clicked)
	require.NoError(t, err)
	assert.Equal(t, clicked, loc.Point)

	select {
	case event := <-published:
		assert.Equal(t, s.ID, event.SessionID)
		assert.Equal(t, clicked, event.Location.Point)
	case <-time.After(time.Second):
		t.Fatal("location event was not published")
	}

	// ошибка публикации не ломает сессию
	_, err = r.Get(s.ID)
	assert.NoError(t, err)
}

func TestRegistry_PublishesTerminalDownloadState(t *testing.T) {
	streams := &MockStreamRepository{}
	published := make(chan domain.DownloadStateEvent, 1)
	streams.On("PublishToStream", mock.Anything, domain.StreamDownloadState, mock.AnythingOfType("domain.DownloadStateEvent")).
		Run(func(args mock.Arguments) {
			published <- args.Get(2).(domain.DownloadStateEvent)
		}).
		Return(nil).Once()

	r := newRegistry(t, &MockGeocodingRepository{}, streams, time.Minute)
	s := r.Create(mapwidget.Options{Center: praca, Zoom: 15})

	_, err := s.Commands.TriggerOfflineDownload(context.Background())
	require.NoError(t, err)

	select {
	case event := <-published:
		assert.Equal(t, domain.DownloadCompleted, event.State.Phase)
		assert.Equal(t, event.State.Total, event.State.Completed)
	case <-time.After(2 * time.Second):
		t.Fatal("download state was not published")
	}
}
