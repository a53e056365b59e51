package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/redis/go-redis/v9"
)

// Client stays nil when REDIS_ADDR is not set; callers fall back to
// in-process state.
var Client *redis.Client

func Init(ctx context.Context, cfg config.RedisConfig) error {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not set, using in-process rate limiting")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	Client = client
	logger.Info("connected to Redis", "addr", cfg.Addr)
	return nil
}

func Close() error {
	if Client == nil {
		return nil
	}
	return Client.Close()
}
