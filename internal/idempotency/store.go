// Package idempotency deduplicates webhook deliveries by message SID.
// Messaging vendors redeliver on timeout; replaying the cached reply keeps a
// redelivered message from advancing the conversation twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPattern = "idempotency:%s"

// ReplyCache stores the reply produced for a message SID.
type ReplyCache interface {
	Get(ctx context.Context, messageSID string) (string, bool, error)
	Set(ctx context.Context, messageSID, reply string) error
}

// RedisCache is a Redis-backed ReplyCache with per-entry TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

var _ ReplyCache = (*RedisCache)(nil)

// NewRedisCache builds the cache. Entries expire after ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
	if log == nil {
		log = slog.Default()
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Get returns the cached reply for the SID, if any.
func (c *RedisCache) Get(ctx context.Context, messageSID string) (string, bool, error) {
	reply, err := c.client.Get(ctx, fmt.Sprintf(keyPattern, messageSID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		c.log.Error("failed to fetch idempotency record",
			slog.String("message_sid", messageSID),
			slog.Any("error", err),
		)
		return "", false, err
	}

	return reply, true, nil
}

// Set caches the reply for the SID.
func (c *RedisCache) Set(ctx context.Context, messageSID, reply string) error {
	if err := c.client.Set(ctx, fmt.Sprintf(keyPattern, messageSID), reply, c.ttl).Err(); err != nil {
		c.log.Error("failed to store idempotency record",
			slog.String("message_sid", messageSID),
			slog.Any("error", err),
		)
		return err
	}

	return nil
}
