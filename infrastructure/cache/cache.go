package cache

import (
	"context"

	"video-relay/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects to Redis. The client is returned even when the ping
// fails so callers can decide whether to run without a cache.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).WithField("addr", addr).Warn("Redis ping failed")
		return client, err
	}
	return client, nil
}
