package config

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"
)

var Ctx = context.Background()

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// ConnectRedis initializes the Redis client once and returns it.
func ConnectRedis() *redis.Client {
	redisOnce.Do(func() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     os.Getenv("REDIS_ADDRESS"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0, // default DB
		})

		if _, err := redisClient.Ping(Ctx).Result(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}

		log.Println("Connected to Redis")
	})

	return redisClient
}
