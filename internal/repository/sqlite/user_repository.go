package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"nestbook/internal/domain"
	"nestbook/internal/repository"
)

const selectUser = `
SELECT u.id, u.first_name, u.last_name, u.email, u.password_hash, u.user_type,
	u.created_at, u.updated_at, c.code, c.expires_at
FROM users u
LEFT JOIN password_challenges c ON c.user_id = u.id
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, first_name, last_name, email, password_hash, user_type, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		string(user.UserType),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var sqliteErr *msqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return repository.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE u.email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE u.id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) Save(ctx context.Context, user *domain.User) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save user: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	user.UpdatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
UPDATE users
SET first_name = ?, last_name = ?, password_hash = ?, user_type = ?, updated_at = ?
WHERE id = ?`,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		string(user.UserType),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	if user.HasPendingOTP() {
		_, err = tx.ExecContext(ctx, `
INSERT INTO password_challenges (user_id, code, expires_at)
VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at`,
			user.ID,
			*user.OTP,
			user.OTPExpiry.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("upsert password challenge: %w", err)
		}
	} else {
		if _, err = tx.ExecContext(ctx, `DELETE FROM password_challenges WHERE user_id = ?`, user.ID); err != nil {
			return fmt.Errorf("clear password challenge: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save user: %w", err)
	}
	return nil
}

// SetChallenge upserts the pending code only, so a concurrent password change is never overwritten.
func (r *UserRepository) SetChallenge(ctx context.Context, userID, code string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO password_challenges (user_id, code, expires_at)
SELECT id, ?, ? FROM users WHERE id = ?
ON CONFLICT(user_id) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at`,
		code,
		expiresAt.UnixMilli(),
		userID,
	)
	if err != nil {
		return fmt.Errorf("set password challenge: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set password challenge rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user      domain.User
		userType  string
		code      sql.NullString
		expiresAt sql.NullInt64
	)
	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&userType,
		&user.CreatedAt,
		&user.UpdatedAt,
		&code,
		&expiresAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.UserType = domain.UserType(userType)
	if code.Valid && expiresAt.Valid {
		user.SetOTP(code.String, time.UnixMilli(expiresAt.Int64))
	}
	return &user, nil
}
