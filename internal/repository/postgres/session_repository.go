package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"nestbook/internal/domain"
	"nestbook/internal/repository"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get retrieves an unexpired session by id.
func (r *SessionRepository) Get(ctx context.Context, id string, now time.Time) (*domain.Session, error) {
	var (
		sess domain.Session
		data []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, data, expires_at, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`, id).Scan(&sess.ID, &data, &sess.ExpiresAt, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session").
			Wrap(err)
	}
	if sess.Expired(now) {
		return nil, repository.ErrNotFound
	}
	if err := repository.DecodeSessionData(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Save inserts or replaces a session.
func (r *SessionRepository) Save(ctx context.Context, session *domain.Session) error {
	data, err := repository.EncodeSessionData(session)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	_, err = r.db.Exec(ctx, `
		INSERT INTO sessions (id, data, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at
	`, session.ID, data, session.ExpiresAt, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "upsert session").
			Wrap(err)
	}
	return nil
}

// Extend moves the expiry of an existing session; a missing row is left missing.
func (r *SessionRepository) Extend(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions SET expires_at = $1, updated_at = $2 WHERE id = $3
	`, expiresAt, time.Now().UTC(), id)
	if err != nil {
		return false, oops.Code("SESSION_EXTEND_FAILED").
			With("operation", "extend session").
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Destroy deletes a session; missing sessions are ignored.
func (r *SessionRepository) Destroy(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all sessions that expired at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}
