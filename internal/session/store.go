package session

import "context"

// Store keeps the latest session per user.
type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID string) error
}
