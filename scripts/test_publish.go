//go:build ignore

// Публикует запрос предзагрузки тайлов и ждет ответа воркера.
//
//	go run scripts/test_publish.go -redis localhost:6379 -min 15 -max 16
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/geopin-service/internal/domain"
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	style := flag.String("style", "standard", "Tile style: standard, satellite, hybrid")
	minZoom := flag.Int("min", 15, "Min zoom")
	maxZoom := flag.Int("max", 16, "Max zoom")
	flag.Parse()

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Тестовый запрос: Praça Tiradentes, Curitiba
	event := domain.PrefetchRequestEvent{
		RequestID: uuid.New(),
		Bounds:    domain.Bounds{South: -25.4310, West: -49.2760, North: -25.4260, East: -49.2700},
		Style:     domain.TileStyle(*style),
		MinZoom:   minZoom,
		MaxZoom:   maxZoom,
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: domain.StreamTilesPrefetch,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("Event published\n")
	fmt.Printf("   Stream: %s\n", domain.StreamTilesPrefetch)
	fmt.Printf("   Message ID: %s\n", result)
	fmt.Printf("   Request ID: %s\n", event.RequestID)
	fmt.Printf("   Zoom: %d..%d, style %s\n", *minZoom, *maxZoom, *style)

	fmt.Printf("\nWaiting for response in %s...\n", domain.StreamTilesPrefetched)

	timeout := time.After(2 * time.Minute)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			fmt.Println("Timeout waiting for response")
			return
		case <-ticker.C:
			results, err := client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{domain.StreamTilesPrefetched, "0"},
				Count:   100,
				Block:   -1,
			}).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				continue
			}

			for _, stream := range results {
				for _, msg := range stream.Messages {
					raw, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var done domain.PrefetchDoneEvent
					if err := json.Unmarshal([]byte(raw), &done); err != nil || done.RequestID != event.RequestID {
						continue
					}

					fmt.Printf("\nResponse received\n")
					fmt.Printf("   Phase: %s\n", done.State.Phase)
					fmt.Printf("   Tiles: %d/%d\n", done.State.Completed, done.State.Total)
					if done.Error != "" {
						fmt.Printf("   Error: %s\n", done.Error)
					}
					return
				}
			}
		}
	}
}
