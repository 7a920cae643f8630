// Package conversation holds the per-sender booking state machine.
package conversation

import "context"

// Storage defines the persistence contract for conversation sessions.
type Storage interface {
	// Get returns the current session for the sender.
	Get(ctx context.Context, senderID string) (*Session, error)
	// Save persists the session for the sender.
	Save(ctx context.Context, senderID string, session *Session) error
	// Clear removes the session for the sender.
	Clear(ctx context.Context, senderID string) error
	// All returns every stored session.
	All(ctx context.Context) ([]*Session, error)
}
