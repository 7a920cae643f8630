package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	senderLockKeyPattern = "session:lock:%s"
	senderLockTTL        = 5 * time.Second
)

var (
	// ErrSessionNotFound indicates that a sender has no stored session.
	ErrSessionNotFound = errors.New("conversation session not found")
	// ErrSessionLocked indicates that another message from the same sender is being handled.
	ErrSessionLocked = errors.New("conversation session is locked")
	// ErrInvalidTransition indicates a step change outside the flow's transition table.
	ErrInvalidTransition = errors.New("invalid conversation step transition")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe step transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// Manager guards read-modify-write access to a sender's session. A Redis
// SetNX lock per sender keeps message handling strictly ordered for that
// sender while different senders proceed concurrently; the survey job goes
// through the same lock.
type Manager struct {
	storage     Storage
	log         *slog.Logger
	redisClient *redis.Client
}

// NewManager creates a session manager using the provided storage backend and redis client for locking.
func NewManager(storage Storage, log *slog.Logger, redisClient *redis.Client) *Manager {
	if log == nil {
		log = slog.Default()
	}

	return &Manager{
		storage:     storage,
		log:         log,
		redisClient: redisClient,
	}
}

// Get proxies to the underlying storage implementation.
func (m *Manager) Get(ctx context.Context, senderID string) (*Session, error) {
	return m.storage.Get(ctx, senderID)
}

// All returns every persisted session.
func (m *Manager) All(ctx context.Context) ([]*Session, error) {
	return m.storage.All(ctx)
}

// CountByStep returns the number of stored sessions per step label.
func (m *Manager) CountByStep(ctx context.Context) (map[string]int, error) {
	sessions, err := m.storage.All(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(sessions))
	for _, session := range sessions {
		label := "unknown"
		if session != nil && session.Step != "" {
			label = string(session.Step)
		}
		counts[label]++
	}

	return counts, nil
}

// WithSession loads (or creates) the sender's session under the per-sender
// lock, applies fn, validates the resulting step change, and persists it.
func (m *Manager) WithSession(ctx context.Context, senderID string, fn func(*Session) error) error {
	if err := m.lock(ctx, senderID); err != nil {
		return err
	}
	defer m.unlock(ctx, senderID)

	session, err := m.storage.Get(ctx, senderID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			return err
		}
		session = &Session{SenderID: senderID, Step: StepStart}
	}

	previous := session.Step

	if err := fn(session); err != nil {
		return err
	}

	if session.Step != previous {
		if !IsTransitionAllowed(previous, session.Step) {
			m.log.Warn("invalid step transition",
				slog.String("sender_id", senderID),
				slog.String("from", string(previous)),
				slog.String("to", string(session.Step)),
			)
			return ErrInvalidTransition
		}
		transitionRecorder(string(previous), string(session.Step))
	}

	return m.storage.Save(ctx, senderID, session)
}

// Overwrite replaces the sender's session unconditionally, regardless of
// what the sender is doing at that moment. The survey job uses this to
// interrupt any conversation in progress, mid-booking included.
func (m *Manager) Overwrite(ctx context.Context, senderID string, session *Session) error {
	if err := m.lock(ctx, senderID); err != nil {
		return err
	}
	defer m.unlock(ctx, senderID)

	previous := StepStart
	if stored, err := m.storage.Get(ctx, senderID); err == nil && stored != nil {
		previous = stored.Step
	} else if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	if session.Step != previous {
		transitionRecorder(string(previous), string(session.Step))
	}

	session.SenderID = senderID
	return m.storage.Save(ctx, senderID, session)
}

func (m *Manager) lock(ctx context.Context, senderID string) error {
	if m.redisClient == nil {
		m.log.Warn("redis client not configured for session locks; skipping", "sender_id", senderID)
		return nil
	}

	key := fmt.Sprintf(senderLockKeyPattern, senderID)
	acquired, err := m.redisClient.SetNX(ctx, key, 1, senderLockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire session lock", "sender_id", senderID, "error", err)
		return err
	}

	if !acquired {
		m.log.Warn("session lock already held", "sender_id", senderID)
		return ErrSessionLocked
	}

	return nil
}

func (m *Manager) unlock(ctx context.Context, senderID string) {
	if m.redisClient == nil {
		return
	}

	key := fmt.Sprintf(senderLockKeyPattern, senderID)
	if err := m.redisClient.Del(ctx, key).Err(); err != nil {
		m.log.Error("failed to release session lock", "sender_id", senderID, "error", err)
	}
}
