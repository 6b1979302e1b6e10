package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nestbook/internal/domain"
	"nestbook/internal/repository"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Get(ctx context.Context, id string, now time.Time) (*domain.Session, error) {
	var (
		sess      domain.Session
		data      string
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, data, expires_at, created_at, updated_at
FROM sessions
WHERE id = ?`,
		id,
	).Scan(&sess.ID, &data, &expiresAt, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	sess.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	if sess.Expired(now) {
		return nil, repository.ErrNotFound
	}
	if err := repository.DecodeSessionData([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

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

	_, err = r.db.ExecContext(ctx, `
INSERT INTO sessions (id, data, expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		session.ID,
		string(data),
		session.ExpiresAt.UnixMilli(),
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Extend(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET expires_at = ?, updated_at = ? WHERE id = ?`,
		expiresAt.UnixMilli(),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("extend session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("extend session rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SessionRepository) Destroy(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows affected: %w", err)
	}
	return n, nil
}
