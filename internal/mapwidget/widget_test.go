package mapwidget_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/mapwidget"
	apperrors "github.com/geopin-service/internal/pkg/errors"
	"github.com/geopin-service/internal/usecase"
)

type MockGeocodingRepository struct {
	mock.Mock
}

func (m *MockGeocodingRepository) Search(ctx context.Context, query string, limit int) ([]domain.SearchSuggestion, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchSuggestion), args.Error(1)
}

func (m *MockGeocodingRepository) Reverse(ctx context.Context, point domain.GeoPoint) (*domain.AddressFields, error) {
	args := m.Called(ctx, point)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AddressFields), args.Error(1)
}

type MockPostalCodeRepository struct {
	mock.Mock
}

func (m *MockPostalCodeRepository) Lookup(ctx context.Context, state, city, street string) ([]domain.PostalCandidate, error) {
	args := m.Called(ctx, state, city, street)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PostalCandidate), args.Error(1)
}

type staticTileSource struct{}

func (staticTileSource) Fetch(ctx context.Context, style domain.TileStyle, tile domain.TileIndex, mode repository.FetchMode) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (staticTileSource) Online(ctx context.Context) bool { return true }

type memStore struct {
	mu    sync.Mutex
	tiles map[domain.TileIndex]domain.TileStyle
}

func (s *memStore) GetTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex) ([]byte, error) {
	return nil, apperrors.ErrTileNotFound
}

func (s *memStore) SetTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tiles == nil {
		s.tiles = make(map[domain.TileIndex]domain.TileStyle)
	}
	s.tiles[tile] = style
	return nil
}

func (s *memStore) HasTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tiles[tile]
	return ok, nil
}

func (s *memStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tiles)
}

var praca = domain.GeoPoint{Lat: -25.4284, Lng: -49.2733}

func testOptions() mapwidget.Options {
	viewport := usecase.DefaultViewportOptions()
	viewport.Width, viewport.Height = 512, 512

	offline := usecase.DefaultOfflineOptions()
	offline.MinZoom, offline.MaxZoom = 15, 16
	offline.DisplayInterval = 50 * time.Millisecond

	search := usecase.DefaultSearchOptions()
	search.Debounce = 10 * time.Millisecond

	return mapwidget.Options{
		Center:     praca,
		Zoom:       15,
		City:       "Curitiba",
		State:      "PR",
		ShowMarker: true,
		Viewport:   viewport,
		Offline:    offline,
		Search:     search,
	}
}

type events struct {
	mu        sync.Mutex
	locations []domain.ResolvedLocation
	zooms     []int
	states    []domain.DownloadState
}

func (e *events) callbacks() mapwidget.Callbacks {
	return mapwidget.Callbacks{
		OnLocationSelect: func(loc domain.ResolvedLocation) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.locations = append(e.locations, loc)
		},
		OnZoomChange: func(z int) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.zooms = append(e.zooms, z)
		},
		OnDownloadStateChange: func(s domain.DownloadState) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.states = append(e.states, s)
		},
	}
}

func (e *events) lastLocation() (domain.ResolvedLocation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.locations) == 0 {
		return domain.ResolvedLocation{}, false
	}
	return e.locations[len(e.locations)-1], true
}

func (e *events) hasPhase(phase domain.DownloadPhase) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.states {
		if s.Phase == phase {
			return true
		}
	}
	return false
}

func newWidget(t *testing.T, opts mapwidget.Options, geocoder *MockGeocodingRepository, postal *MockPostalCodeRepository, store *memStore, ev *events) (*mapwidget.Widget, mapwidget.Commands) {
	t.Helper()
	w, commands := mapwidget.New(opts, mapwidget.Deps{
		Geocoder: geocoder,
		Postal:   postal,
		Tiles:    staticTileSource{},
		Store:    store,
		Logger:   zap.NewNop(),
	}, ev.callbacks())
	t.Cleanup(w.Close)
	return w, commands
}

func TestWidget_TriggerOfflineDownload(t *testing.T) {
	store := &memStore{}
	ev := &events{}
	w, commands := newWidget(t, testOptions(), &MockGeocodingRepository{}, &MockPostalCodeRepository{}, store, ev)

	assert.False(t, commands.CancelOfflineDownload())

	jobID, err := commands.TriggerOfflineDownload(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		return ev.hasPhase(domain.DownloadCompleted)
	}, 2*time.Second, 5*time.Millisecond)
	assert.Greater(t, store.Len(), 0)

	assert.Eventually(t, func() bool {
		return w.DownloadState().Phase == domain.DownloadIdle
	}, time.Second, 5*time.Millisecond)
}

func TestWidget_TriggerOfflineDownloadWithoutCenter(t *testing.T) {
	opts := testOptions()
	opts.Center = domain.NoPoint()
	_, commands := newWidget(t, opts, &MockGeocodingRepository{}, &MockPostalCodeRepository{}, &memStore{}, &events{})

	_, err := commands.TriggerOfflineDownload(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidCoordinates)
}

func TestWidget_SearchAndCenter(t *testing.T) {
	geocoder := &MockGeocodingRepository{}
	postal := &MockPostalCodeRepository{}
	ev := &events{}

	target := domain.GeoPoint{Lat: -25.4410, Lng: -49.2760}
	geocoder.On("Search", mock.Anything, "Avenida Sete de Setembro 2775", 1).Return([]domain.SearchSuggestion{{
		DisplayName: "Avenida Sete de Setembro, Rebouças, Curitiba",
		Address:     domain.AddressFields{Road: "Avenida Sete de Setembro", Suburb: "Rebouças", City: "Curitiba", State: "PR"},
		Point:       target,
	}}, nil)
	postal.On("Lookup", mock.Anything, "PR", "Curitiba", "Avenida Sete de Setembro").Return([]domain.PostalCandidate{
		{PostalCode: "80230-010", Street: "Avenida Sete de Setembro", Complement: "de 2001 a 3499 - lado ímpar", Neighborhood: "Rebouças"},
		{PostalCode: "80230-000", Street: "Avenida Sete de Setembro", Complement: "de 2000 a 3500 - lado par", Neighborhood: "Rebouças"},
	}, nil)

	w, commands := newWidget(t, testOptions(), geocoder, postal, &memStore{}, ev)

	require.NoError(t, commands.SearchAndCenter(context.Background(), "Avenida Sete de Setembro 2775"))

	snap := w.Snapshot()
	assert.Equal(t, target, snap.Viewport.Center)
	assert.Equal(t, 18, snap.Viewport.Zoom)

	require.Eventually(t, func() bool {
		_, ok := ev.lastLocation()
		return ok
	}, time.Second, 5*time.Millisecond)
	loc, _ := ev.lastLocation()
	assert.Equal(t, "80230-010", loc.PostalCode)
	assert.Equal(t, "2775", loc.HouseNumber)

	ev.mu.Lock()
	assert.Equal(t, []int{18}, ev.zooms)
	ev.mu.Unlock()

	snap = w.Snapshot()
	require.NotNil(t, snap.Marker)
	assert.Equal(t, target, *snap.Marker)
	assert.Equal(t, usecase.InputSuppressed, snap.Search.Mode)

	// хост возвращает новый центр и зум: камера уже там
	d := w.SetView(target, 18)
	assert.Equal(t, usecase.ActionNone, d.Action)
}

func TestWidget_SearchAndCenterNotFound(t *testing.T) {
	geocoder := &MockGeocodingRepository{}
	geocoder.On("Search", mock.Anything, "Rua Inexistente 1", 1).Return([]domain.SearchSuggestion{}, nil)

	w, commands := newWidget(t, testOptions(), geocoder, &MockPostalCodeRepository{}, &memStore{}, &events{})

	err := commands.SearchAndCenter(context.Background(), "Rua Inexistente 1")
	assert.ErrorIs(t, err, apperrors.ErrAddressNotFound)
	assert.Equal(t, praca, w.Snapshot().Viewport.Center)
}

func TestWidget_ClickEchoDoesNotRecenter(t *testing.T) {
	geocoder := &MockGeocodingRepository{}
	clicked := domain.GeoPoint{Lat: -25.4300, Lng: -49.2700}
	geocoder.On("Reverse", mock.Anything, clicked).Return(nil, errors.New("timeout"))

	ev := &events{}
	w, _ := newWidget(t, testOptions(), geocoder, &MockPostalCodeRepository{}, &memStore{}, ev)

	loc, err := w.Click(context.Background(), clicked)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCoordinate, loc.Source)

	d := w.SetView(clicked, 15)
	assert.Equal(t, usecase.ActionNone, d.Action)
	assert.Equal(t, praca, w.Snapshot().Viewport.Center)

	// следующее обновление обрабатывается как обычно
	d = w.SetView(clicked, 15)
	assert.Equal(t, usecase.ActionRecenter, d.Action)
}

func TestWidget_Inputs(t *testing.T) {
	geocoder := &MockGeocodingRepository{}
	geocoder.On("Search", mock.Anything, mock.Anything, 5).Return([]domain.SearchSuggestion{}, nil).Maybe()
	w, _ := newWidget(t, testOptions(), geocoder, &MockPostalCodeRepository{}, &memStore{}, &events{})

	assert.ErrorIs(t, w.SetTileStyle("terrain"), apperrors.ErrInvalidTileStyle)
	require.NoError(t, w.SetTileStyle(domain.TileStyleSatellite))
	assert.Equal(t, domain.TileStyleSatellite, w.Snapshot().Style)

	w.SetShowMarker(false)
	assert.False(t, w.Snapshot().ShowMarker)

	w.SetSize(800, 600)
	snap := w.Snapshot()
	assert.Equal(t, 800, snap.Viewport.Width)
	require.NotNil(t, snap.Bounds)

	w.SetRegion("Londrina", "PR")
	w.Type("Rua Sergipe")
	assert.Equal(t, "Rua Sergipe, Londrina, PR", w.Search().Query)

	assert.Equal(t, 17, w.UserZoom(17))
	assert.Equal(t, praca, w.Snapshot().Viewport.Center)

	assert.ErrorIs(t, w.ConfirmDownload(true), apperrors.ErrNoConfirmationPending)
}
