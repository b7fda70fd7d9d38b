package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nexor-io/nexor-go/pkg/config"
)

// NewRedisClient creates a Redis client from the settings. Returns nil
// without error when Redis is not configured (empty host), so callers can
// treat the worker backend as optional.
func NewRedisClient(ctx context.Context, cfg *config.RedisSettings) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password.Value(),
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
