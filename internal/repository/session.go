package repository

import (
	"context"
	"time"

	"nestbook/internal/domain"
)

// SessionRepository persists server-side sessions.
type SessionRepository interface {
	// Get returns the session with the given id. Missing and expired sessions both yield ErrNotFound.
	Get(ctx context.Context, id string, now time.Time) (*domain.Session, error)
	// Save inserts or replaces the session.
	Save(ctx context.Context, session *domain.Session) error
	// Extend moves the expiry of an existing session. It reports false when the session no longer exists,
	// so a destroyed session is never written back.
	Extend(ctx context.Context, id string, expiresAt time.Time) (bool, error)
	// Destroy deletes the session. Deleting a missing session is not an error.
	Destroy(ctx context.Context, id string) error
	// DeleteExpired removes sessions whose expiry is before now and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
