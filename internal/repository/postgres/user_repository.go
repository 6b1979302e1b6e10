package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"nestbook/internal/domain"
	"nestbook/internal/repository"
)

const selectUser = `
	SELECT u.id, u.first_name, u.last_name, u.email, u.password_hash, u.user_type,
		u.created_at, u.updated_at, c.code, c.expires_at
	FROM users u
	LEFT JOIN password_challenges c ON c.user_id = u.id
`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user, mapping unique violations to repository.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash, user_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
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
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return repository.ErrUserExists
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return nil
}

// GetByEmail retrieves a user and any pending challenge by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, selectUser+`WHERE u.email = $1`, email))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, err
}

// GetByID retrieves a user and any pending challenge by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, selectUser+`WHERE u.id = $1`, id))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}
	return user, err
}

// Save updates the user row and upserts or clears the password challenge in one transaction.
func (r *UserRepository) Save(ctx context.Context, user *domain.User) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("USER_SAVE_FAILED").With("operation", "begin").Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck
		}
	}()

	user.UpdatedAt = time.Now().UTC()
	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, password_hash = $3, user_type = $4, updated_at = $5
		WHERE id = $6
	`,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		string(user.UserType),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return oops.Code("USER_SAVE_FAILED").With("operation", "update user").With("id", user.ID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if user.HasPendingOTP() {
		_, err = tx.Exec(ctx, `
			INSERT INTO password_challenges (user_id, code, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at
		`, user.ID, *user.OTP, *user.OTPExpiry)
		if err != nil {
			return oops.Code("USER_SAVE_FAILED").With("operation", "upsert challenge").With("id", user.ID).Wrap(err)
		}
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM password_challenges WHERE user_id = $1`, user.ID)
		if err != nil {
			return oops.Code("USER_SAVE_FAILED").With("operation", "clear challenge").With("id", user.ID).Wrap(err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return oops.Code("USER_SAVE_FAILED").With("operation", "commit").With("id", user.ID).Wrap(err)
	}
	return nil
}

// SetChallenge upserts the pending code without touching the user row.
func (r *UserRepository) SetChallenge(ctx context.Context, userID, code string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO password_challenges (user_id, code, expires_at)
		SELECT id, $1, $2 FROM users WHERE id = $3
		ON CONFLICT (user_id) DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at
	`, code, expiresAt, userID)
	if err != nil {
		return oops.Code("USER_SET_CHALLENGE_FAILED").With("operation", "upsert challenge").With("id", userID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user      domain.User
		userType  string
		code      *string
		expiresAt *time.Time
	)
	err := row.Scan(
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
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.UserType = domain.UserType(userType)
	if code != nil && expiresAt != nil {
		user.SetOTP(*code, *expiresAt)
	}
	return &user, nil
}
