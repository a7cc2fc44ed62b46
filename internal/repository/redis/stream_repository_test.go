package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	redisRepo "github.com/geopin-service/internal/repository/redis"
)

const (
	testPrefetchStream = "test:stream:tiles:prefetch"
	testSelectedStream = "test:stream:map:location_selected"
)

// getTestRedisClient creates a Redis client for testing
func getTestRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use DB 1 for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}

	client.Del(ctx, testPrefetchStream, testSelectedStream)
	t.Cleanup(func() {
		client.Del(context.Background(), testPrefetchStream, testSelectedStream)
		client.Close()
	})

	return client
}

func TestStreamRepository_CreateConsumerGroup(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, redisRepo.StreamOptions{BlockTimeout: 100 * time.Millisecond}, zap.NewNop())
	ctx := context.Background()

	err := repo.CreateConsumerGroup(ctx, testPrefetchStream, "test-group")
	require.NoError(t, err)

	groups, err := client.XInfoGroups(ctx, testPrefetchStream).Result()
	require.NoError(t, err)
	assert.Len(t, groups, 1)
	assert.Equal(t, "test-group", groups[0].Name)

	// Creating again should not error (BUSYGROUP handled)
	assert.NoError(t, repo.CreateConsumerGroup(ctx, testPrefetchStream, "test-group"))
}

func TestStreamRepository_PublishToStream(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, redisRepo.StreamOptions{BlockTimeout: 100 * time.Millisecond}, zap.NewNop())
	ctx := context.Background()

	sessionID := uuid.New()
	event := &domain.LocationSelectedEvent{
		SessionID: sessionID,
		Location: domain.ResolvedLocation{
			Point:       domain.GeoPoint{Lat: -25.4284, Lng: -49.2733},
			Street:      "Rua XV de Novembro",
			HouseNumber: "250",
			PostalCode:  "80000-001",
			Source:      domain.SourcePostal,
		},
		SelectedAt: time.Now().UTC(),
	}

	require.NoError(t, repo.PublishToStream(ctx, testSelectedStream, event))

	messages, err := client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{testSelectedStream, "0"},
		Count:   1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Messages, 1)

	dataStr, ok := messages[0].Messages[0].Values["data"].(string)
	require.True(t, ok)

	var received domain.LocationSelectedEvent
	require.NoError(t, json.Unmarshal([]byte(dataStr), &received))
	assert.Equal(t, sessionID, received.SessionID)
	assert.Equal(t, "80000-001", received.Location.PostalCode)
	assert.True(t, received.HasStreetAddress())
}

func TestStreamRepository_ConsumeBatchAndAck(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, redisRepo.StreamOptions{BlockTimeout: 100 * time.Millisecond}, zap.NewNop())
	ctx := context.Background()

	const group = "test-consume-group"
	require.NoError(t, repo.CreateConsumerGroup(ctx, testPrefetchStream, group))

	// empty stream returns no messages and no error once the block timeout expires
	empty, err := repo.ConsumeBatch(ctx, testPrefetchStream, group, "c1", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	requestID := uuid.New()
	event := &domain.PrefetchRequestEvent{
		RequestID: requestID,
		Bounds:    domain.Bounds{South: -25.44, West: -49.28, North: -25.42, East: -49.26},
		Style:     domain.TileStyleSatellite,
	}
	require.NoError(t, repo.PublishToStream(ctx, testPrefetchStream, event))

	// a message without the data field is acknowledged and skipped
	client.XAdd(ctx, &redis.XAddArgs{Stream: testPrefetchStream, Values: map[string]interface{}{"junk": "1"}})

	messages, err := repo.ConsumeBatch(ctx, testPrefetchStream, group, "c1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	var received domain.PrefetchRequestEvent
	require.NoError(t, json.Unmarshal([]byte(messages[0].Data), &received))
	assert.Equal(t, requestID, received.RequestID)
	assert.Equal(t, domain.TileStyleSatellite, received.Style)

	pending, err := client.XPending(ctx, testPrefetchStream, group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)

	require.NoError(t, repo.AckMessage(ctx, testPrefetchStream, group, messages[0].ID))

	pending, err = client.XPending(ctx, testPrefetchStream, group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestStreamRepository_ConsumeBatch_ContextCancellation(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, redisRepo.StreamOptions{BlockTimeout: 5 * time.Second}, zap.NewNop())

	require.NoError(t, repo.CreateConsumerGroup(context.Background(), testPrefetchStream, "test-cancel-group"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := repo.ConsumeBatch(ctx, testPrefetchStream, "test-cancel-group", "c1", 1)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStreamRepository_PublishTrimsStream(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, redisRepo.StreamOptions{MaxLen: 10}, zap.NewNop())
	ctx := context.Background()

	for i := range 250 {
		event := domain.DownloadStateEvent{
			SessionID: uuid.New(),
			State:     domain.DownloadState{Phase: domain.DownloadCompleted, Completed: i, Total: i},
			At:        time.Now(),
		}
		require.NoError(t, repo.PublishToStream(ctx, testSelectedStream, event))
	}

	// приблизительная обрезка удаляет целые узлы стрима
	n, err := client.XLen(ctx, testSelectedStream).Result()
	require.NoError(t, err)
	assert.Less(t, n, int64(250))
	assert.GreaterOrEqual(t, n, int64(10))
}
