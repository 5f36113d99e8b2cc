package database

import (
	"context"
	"time"

	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/go-redis/redis/v8"
)

// Connect builds the redis client and verifies the backend is reachable.
// With STORE_SOFT_FAIL the ping failure is returned instead of being fatal,
// so main can log it and keep serving in degraded mode.
func Connect(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return client, err
	}
	return client, nil
}
