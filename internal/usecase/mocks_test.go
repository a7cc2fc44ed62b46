package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/geopin-service/internal/domain"
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

type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

// recordingNavigator запоминает перелеты и подавления камеры
type recordingNavigator struct {
	mu         sync.Mutex
	flights    []domain.GeoPoint
	suppressed int
}

func (n *recordingNavigator) FlyTo(point domain.GeoPoint) usecase.ViewDecision {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flights = append(n.flights, point)
	return usecase.ViewDecision{Action: usecase.ActionRecenter, Center: point, Zoom: 18}
}

func (n *recordingNavigator) SuppressNext() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.suppressed++
}

func (n *recordingNavigator) Flights() []domain.GeoPoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.GeoPoint(nil), n.flights...)
}
