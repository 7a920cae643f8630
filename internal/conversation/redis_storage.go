package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPattern  = "session:%s"
	sessionScanPattern = "session:*"
	sessionScanCount   = 100
)

// RedisStorage persists conversation sessions in Redis. Sessions are shared
// between the webhook process and the survey job worker, so they cannot live
// in process memory.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisStorage initializes a Redis-backed Storage implementation.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) Storage {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// Get returns the stored session or ErrSessionNotFound when absent.
func (s *RedisStorage) Get(ctx context.Context, senderID string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(senderID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}

		s.log.Error("failed to get session from redis", "sender_id", senderID, "error", err)
		return nil, err
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		s.log.Error("failed to decode session", "sender_id", senderID, "error", err)
		return nil, err
	}

	return &session, nil
}

// Save persists the session with the configured TTL. The TTL must outlive
// the survey delay, otherwise the awaiting-survey state written by the job
// would expire before the patient answers.
func (s *RedisStorage) Save(ctx context.Context, senderID string, session *Session) error {
	session.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(session)
	if err != nil {
		s.log.Error("failed to encode session", "sender_id", senderID, "error", err)
		return err
	}

	if err := s.client.Set(ctx, sessionKey(senderID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save session in redis", "sender_id", senderID, "error", err)
		return err
	}

	return nil
}

// Clear removes the stored session for the sender.
func (s *RedisStorage) Clear(ctx context.Context, senderID string) error {
	if err := s.client.Del(ctx, sessionKey(senderID)).Err(); err != nil {
		s.log.Error("failed to clear session", "sender_id", senderID, "error", err)
		return err
	}

	return nil
}

// All retrieves every stored session by scanning Redis keys.
func (s *RedisStorage) All(ctx context.Context) ([]*Session, error) {
	var (
		cursor uint64
		result []*Session
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, sessionScanPattern, sessionScanCount).Result()
		if err != nil {
			s.log.Error("failed to scan sessions", "error", err)
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch session", "key", key, "error", err)
				return nil, err
			}

			var session Session
			if err := json.Unmarshal([]byte(data), &session); err != nil {
				s.log.Error("failed to decode session", "key", key, "error", err)
				continue
			}

			copied := session
			result = append(result, &copied)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func sessionKey(senderID string) string {
	return fmt.Sprintf(sessionKeyPattern, senderID)
}
