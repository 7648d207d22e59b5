package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"video-relay/domain/model"
	"video-relay/domain/repository"
	"video-relay/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

const DefaultChannelTTL = time.Minute

// ChannelCache is a read-through Redis cache in front of the channel store.
// Writes go to the store and invalidate the cached entry.
type ChannelCache struct {
	inner  repository.IChannel
	client *redis.Client
	ttl    time.Duration
}

func NewChannelCache(inner repository.IChannel, client *redis.Client, ttl time.Duration) *ChannelCache {
	if ttl <= 0 {
		ttl = DefaultChannelTTL
	}
	return &ChannelCache{inner: inner, client: client, ttl: ttl}
}

func channelKey(userID, channelID string) string {
	return fmt.Sprintf("relay:channel:%s:%s", userID, channelID)
}

func (c *ChannelCache) GetChannel(ctx context.Context, userID, channelID string) (*model.Channel, error) {
	key := channelKey(userID, channelID)
	log := logger.GetLogger().WithField("key", key)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ch model.Channel
		if err := json.Unmarshal(raw, &ch); err == nil {
			return &ch, nil
		}
		log.Warn("Discarding undecodable cached channel")
	case !errors.Is(err, redis.Nil):
		log.WithField("error", err).Warn("Channel cache read failed")
	}

	ch, err := c.inner.GetChannel(ctx, userID, channelID)
	if err != nil || ch == nil {
		return ch, err
	}
	if data, err := json.Marshal(ch); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.WithField("error", err).Warn("Channel cache write failed")
		}
	}
	return ch, nil
}

func (c *ChannelCache) AppendResultRecord(ctx context.Context, userID, channelID string, record *model.ResultRecord) error {
	return c.inner.AppendResultRecord(ctx, userID, channelID, record)
}

func (c *ChannelCache) UpdateLastAsset(ctx context.Context, userID, channelID string, asset *model.LastAsset) error {
	if err := c.inner.UpdateLastAsset(ctx, userID, channelID, asset); err != nil {
		return err
	}
	c.invalidate(ctx, userID, channelID)
	return nil
}

func (c *ChannelCache) ListResultRecords(ctx context.Context, userID, channelID string, limit int) ([]model.ResultRecord, error) {
	return c.inner.ListResultRecords(ctx, userID, channelID, limit)
}

func (c *ChannelCache) invalidate(ctx context.Context, userID, channelID string) {
	if err := c.client.Del(ctx, channelKey(userID, channelID)).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Channel cache invalidation failed")
	}
}
