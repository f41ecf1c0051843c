package database

import (
	"context"
	"fmt"
	"log"

	"tripsplit-backend/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client

func ConnectRedis() {
	opt, err := redis.ParseURL(config.AppConfig.RedisURL)
	if err != nil {
		log.Println("Invalid REDIS_URL, running without cache:", err)
		return
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Println("Redis not available, running without cache:", err)
		return
	}

	Redis = client
	log.Println("Redis connected")
}

// BalanceCacheKey is the per-trip cache key for computed balance summaries.
func BalanceCacheKey(tripID uuid.UUID) string {
	return fmt.Sprintf("balances:%s", tripID)
}

// InvalidateBalances drops the cached balance summary for a trip. Called
// by every mutation that changes the participant roster or the expense
// set; readers recompute on the next fetch.
func InvalidateBalances(ctx context.Context, tripID uuid.UUID) {
	if Redis == nil {
		return
	}
	if err := Redis.Del(ctx, BalanceCacheKey(tripID)).Err(); err != nil {
		log.Printf("Failed to invalidate balance cache for trip %s: %v", tripID, err)
	}
}
