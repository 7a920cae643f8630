package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cleanerKeyPattern = "session:*"
	cleanerScanCount  = 100
)

// Cleaner removes idle conversation sessions from Redis on a schedule. The
// per-key TTL already bounds session lifetime; the cleaner reclaims sessions
// that keep getting touched without progressing.
type Cleaner struct {
	redisClient *redis.Client
	storage     Storage
	log         *slog.Logger
	ttl         time.Duration
	interval    time.Duration
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(redisClient *redis.Client, storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		redisClient: redisClient,
		storage:     storage,
		log:         log,
		ttl:         ttl,
		interval:    interval,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.redisClient == nil || c.storage == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if reason := ctx.Err(); reason != nil {
				c.log.Info("session cleaner stopped", slog.String("reason", reason.Error()))
			}
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleaner) cleanup(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	var cursor uint64
	for {
		keys, nextCursor, err := c.redisClient.Scan(ctx, cursor, cleanerKeyPattern, cleanerScanCount).Result()
		if err != nil {
			c.log.Error("session cleaner scan failed", slog.Any("error", err))
			return
		}

		for _, key := range keys {
			senderID, ok := extractSenderID(key)
			if !ok {
				continue
			}

			session, err := c.storage.Get(ctx, senderID)
			if err != nil {
				if !errors.Is(err, ErrSessionNotFound) {
					c.log.Error("session cleaner failed to load session",
						slog.String("sender_id", senderID),
						slog.Any("error", err),
					)
				}
				continue
			}

			if time.Since(session.UpdatedAt) > c.ttl {
				if err := c.storage.Clear(ctx, senderID); err != nil {
					c.log.Error("session cleaner failed to clear session",
						slog.String("sender_id", senderID),
						slog.Any("error", err),
					)
					continue
				}
				c.log.Info("idle session cleared", slog.String("sender_id", senderID))
			}
		}

		if ctx.Err() != nil || nextCursor == 0 {
			return
		}
		cursor = nextCursor
	}
}

// extractSenderID pulls the sender out of a session key, skipping lock keys
// that share the prefix.
func extractSenderID(key string) (string, bool) {
	rest, found := strings.CutPrefix(key, "session:")
	if !found || rest == "" {
		return "", false
	}
	if strings.HasPrefix(rest, "lock:") {
		return "", false
	}

	return rest, true
}
