package repository

import (
	"context"
	"errors"
	"time"

	"nestbook/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned by Create when the email is already registered.
	ErrUserExists = errors.New("user already exists")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	// Create inserts a new user. Email uniqueness is enforced by the store and reported as ErrUserExists.
	Create(ctx context.Context, user *domain.User) error
	// GetByEmail returns the user with its pending OTP, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByID returns the user with its pending OTP, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// Save writes the mutable fields and the OTP pair in a single transaction. Last writer wins.
	Save(ctx context.Context, user *domain.User) error
	// SetChallenge upserts the pending OTP of a user without touching the user row.
	// It returns ErrNotFound when the user does not exist.
	SetChallenge(ctx context.Context, userID, code string, expiresAt time.Time) error
}
