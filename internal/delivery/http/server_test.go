package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/config"
	httpdelivery "github.com/geopin-service/internal/delivery/http"
	"github.com/geopin-service/internal/delivery/http/handler"
	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/mapwidget"
	"github.com/geopin-service/internal/usecase"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

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

type pngSource struct{}

func (pngSource) Fetch(ctx context.Context, style domain.TileStyle, tile domain.TileIndex, mode repository.FetchMode) ([]byte, error) {
	return pngHeader, nil
}

func (pngSource) Online(ctx context.Context) bool { return true }

type tileKey struct {
	style domain.TileStyle
	tile  domain.TileIndex
}

type memStore struct {
	mu    sync.Mutex
	tiles map[tileKey][]byte
}

func newMemStore() *memStore {
	return &memStore{tiles: make(map[tileKey][]byte)}
}

func (s *memStore) GetTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tiles[tileKey{style, tile}], nil
}

func (s *memStore) SetTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles[tileKey{style, tile}] = data
	return nil
}

func (s *memStore) HasTile(ctx context.Context, style domain.TileStyle, tile domain.TileIndex) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tiles[tileKey{style, tile}]
	return ok, nil
}

func (s *memStore) any() (tileKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.tiles {
		return k, true
	}
	return tileKey{}, false
}

type testServer struct {
	server   *httpdelivery.Server
	registry *mapwidget.Registry
	geocoder *MockGeocodingRepository
	store    *memStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()

	offline := usecase.DefaultOfflineOptions()
	offline.MinZoom, offline.MaxZoom = 15, 15
	offline.DisplayInterval = 50 * time.Millisecond

	search := usecase.DefaultSearchOptions()
	search.Debounce = 50 * time.Millisecond

	ts := &testServer{
		geocoder: &MockGeocodingRepository{},
		store:    newMemStore(),
	}
	ts.registry = mapwidget.NewRegistry(mapwidget.Deps{
		Geocoder: ts.geocoder,
		Postal:   &MockPostalCodeRepository{},
		Tiles:    pngSource{},
		Store:    ts.store,
	}, mapwidget.Options{
		Viewport: usecase.DefaultViewportOptions(),
		Offline:  offline,
		Search:   search,
	}, nil, time.Minute, logger)
	t.Cleanup(ts.registry.Close)

	ts.server = httpdelivery.NewServer(
		&config.Config{},
		logger,
		handler.NewSessionHandler(ts.registry, logger),
		handler.NewSearchHandler(ts.registry, logger),
		handler.NewOfflineHandler(ts.registry, logger),
		handler.NewTileHandler(ts.store, logger),
	)
	return ts
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string                 `json:"code"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.server.App().Test(req, 5000)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var env envelope
	if len(raw) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()
	resp, env := ts.do(t, http.MethodPost, "/api/v1/sessions", map[string]interface{}{
		"lat":   -25.4284,
		"lng":   -49.2733,
		"zoom":  15,
		"city":  "Curitiba",
		"state": "PR",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.SessionID)
	return created.SessionID
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := ts.do(t, http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestServer_SessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	base := "/api/v1/sessions/" + id

	resp, env := ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap struct {
		Viewport struct {
			Zoom   int             `json:"zoom"`
			Center domain.GeoPoint `json:"center"`
		} `json:"viewport"`
		Style      string `json:"style"`
		ShowMarker bool   `json:"show_marker"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 15, snap.Viewport.Zoom)
	assert.Equal(t, "standard", snap.Style)
	assert.True(t, snap.ShowMarker)

	resp, env = ts.do(t, http.MethodPost, base+"/zoom", map[string]int{"zoom": 17})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Action string          `json:"action"`
		Center domain.GeoPoint `json:"center"`
		Zoom   int             `json:"zoom"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 17, view.Zoom)
	assert.Equal(t, snap.Viewport.Center, view.Center)

	// хост подтверждает тот же центр с новым зумом: камера не двигается
	resp, env = ts.do(t, http.MethodPut, base+"/view", map[string]interface{}{
		"lat": -25.4284, "lng": -49.2733, "zoom": 17,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "none", view.Action)

	resp, env = ts.do(t, http.MethodPut, base+"/view", map[string]interface{}{
		"lat": -25.4500, "lng": -49.2900, "zoom": 16,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "recenter", view.Action)

	resp, _ = ts.do(t, http.MethodPut, base+"/style", map[string]string{"style": "satellite"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, env = ts.do(t, http.MethodPut, base+"/style", map[string]string{"style": "terrain"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
	assert.Equal(t, "tilestyle", env.Error.Details["style"])

	resp, _ = ts.do(t, http.MethodPost, base+"/interaction", map[string]string{"phase": "begin"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodPost, base+"/interaction", map[string]interface{}{
		"phase": "end", "lat": -25.4400, "lng": -49.2800,
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, env = ts.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}

func TestServer_RequestValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, env := ts.do(t, http.MethodPost, "/api/v1/sessions", map[string]interface{}{"lat": 120, "lng": 0, "zoom": 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "lat")

	resp, env = ts.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	id := ts.createSession(t)
	resp, _ = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/interaction", map[string]string{"phase": "drag"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ClickWithFailingGeocoder(t *testing.T) {
	ts := newTestServer(t)
	clicked := domain.GeoPoint{Lat: -25.4300, Lng: -49.2700}
	ts.geocoder.On("Reverse", mock.Anything, clicked).Return(nil, errors.New("timeout"))

	id := ts.createSession(t)
	resp, env := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/click", map[string]float64{
		"lat": clicked.Lat, "lng": clicked.Lng,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res struct {
		Location *domain.ResolvedLocation `json:"location"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotNil(t, res.Location)
	assert.Equal(t, domain.SourceCoordinate, res.Location.Source)
	assert.Equal(t, clicked, res.Location.Point)

	resp, env = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/pending/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NO_PENDING_RESOLUTION", env.Error.Code)
}

func TestServer_SearchInput(t *testing.T) {
	ts := newTestServer(t)
	ts.geocoder.On("Search", mock.Anything, "Rua XV, Curitiba, PR", 5).Return([]domain.SearchSuggestion{{
		DisplayName: "Rua XV de Novembro, Centro, Curitiba",
		Point:       domain.GeoPoint{Lat: -25.4296, Lng: -49.2713},
	}}, nil)

	id := ts.createSession(t)
	resp, env := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/search/input", map[string]string{"text": "Rua XV"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var sugg struct {
		Query       string                    `json:"query"`
		Mode        string                    `json:"mode"`
		Suggestions []domain.SearchSuggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sugg))
	assert.Equal(t, "Rua XV, Curitiba, PR", sugg.Query)
	assert.Equal(t, "debouncing", sugg.Mode)

	require.Eventually(t, func() bool {
		_, env := ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/search/suggestions", nil)
		if err := json.Unmarshal(env.Data, &sugg); err != nil {
			return false
		}
		return len(sugg.Suggestions) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Rua XV de Novembro, Centro, Curitiba", sugg.Suggestions[0].DisplayName)
}

func TestServer_OfflineDownloadAndTiles(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	base := "/api/v1/sessions/" + id

	resp, env := ts.do(t, http.MethodPost, base+"/offline/confirm", map[string]bool{"accept": true})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NO_CONFIRMATION_PENDING", env.Error.Code)

	resp, env = ts.do(t, http.MethodPost, base+"/offline", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var started struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &started))
	assert.NotEmpty(t, started.JobID)

	var key tileKey
	require.Eventually(t, func() bool {
		var ok bool
		key, ok = ts.store.any()
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	path := fmt.Sprintf("/api/v1/tiles/%s/%d/%d/%d", key.style, key.tile.Z, key.tile.X, key.tile.Y)
	resp, _ = ts.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool {
		_, env := ts.do(t, http.MethodGet, base+"/offline", nil)
		var status struct {
			State domain.DownloadState `json:"state"`
		}
		if err := json.Unmarshal(env.Data, &status); err != nil {
			return false
		}
		return status.State.Phase == domain.DownloadIdle
	}, 2*time.Second, 10*time.Millisecond)

	resp, env = ts.do(t, http.MethodDelete, base+"/offline", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cancelled struct {
		Cancelled bool `json:"cancelled"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cancelled))
	assert.False(t, cancelled.Cancelled)
}

func TestServer_TileRequests(t *testing.T) {
	ts := newTestServer(t)

	resp, env := ts.do(t, http.MethodGet, "/api/v1/tiles/terrain/1/0/0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_TILE_STYLE", env.Error.Code)

	resp, env = ts.do(t, http.MethodGet, "/api/v1/tiles/standard/2/4/0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_TILE_COORDINATES", env.Error.Code)

	resp, env = ts.do(t, http.MethodGet, "/api/v1/tiles/standard/15/100/200", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "TILE_NOT_FOUND", env.Error.Code)
}
