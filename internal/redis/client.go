package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/mossy-p/room-signaling/config"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// Connect creates a Redis client and checks it with a PING
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
