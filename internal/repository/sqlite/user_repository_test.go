package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestbook/internal/domain"
	"nestbook/internal/repository"
)

func setupUserRepo(t *testing.T) repository.UserRepository {
	t.Helper()
	db, err := Open(MemoryPath)
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db)
}

func newTestUser(email string) *domain.User {
	return &domain.User{
		FirstName:    "Jo",
		LastName:     "Doe",
		Email:        email,
		PasswordHash: "$2a$12$hash",
		UserType:     domain.UserTypeGuest,
	}
}

func TestUserRepository_CreateAndGetByEmail(t *testing.T) {
	ctx := context.Background()
	repo := setupUserRepo(t)

	user := newTestUser("jo@x.com")
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	got, err := repo.GetByEmail(ctx, "jo@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Jo", got.FirstName)
	assert.Equal(t, "Doe", got.LastName)
	assert.Equal(t, domain.UserTypeGuest, got.UserType)
	assert.Equal(t, "$2a$12$hash", got.PasswordHash)
	assert.False(t, got.HasPendingOTP())
	assert.Nil(t, got.OTP)
	assert.Nil(t, got.OTPExpiry)
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := setupUserRepo(t)

	require.NoError(t, repo.Create(ctx, newTestUser("jo@x.com")))

	err := repo.Create(ctx, newTestUser("jo@x.com"))
	assert.ErrorIs(t, err, repository.ErrUserExists)
}

func TestUserRepository_GetByEmailNotFound(t *testing.T) {
	repo := setupUserRepo(t)

	got, err := repo.GetByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, got)
}

func TestUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := setupUserRepo(t)

	user := newTestUser("jo@x.com")
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "jo@x.com", got.Email)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_SaveSetsAndClearsOTP(t *testing.T) {
	ctx := context.Background()
	repo := setupUserRepo(t)

	user := newTestUser("jo@x.com")
	require.NoError(t, repo.Create(ctx, user))

	expiry := time.Now().Add(20 * time.Minute).Truncate(time.Millisecond)
	user.SetOTP("123456", expiry)
	require.NoError(t, repo.Save(ctx, user))

	got, err := repo.GetByEmail(ctx, "jo@x.com")
	require.NoError(t, err)
	require.True(t, got.HasPendingOTP())
	assert.Equal(t, "123456", *got.OTP)
	assert.True(t, expiry.Equal(*got.OTPExpiry))

	// a second code overwrites the first
	got.SetOTP("654321", expiry.Add(time.Minute))
	require.NoError(t, repo.Save(ctx, got))

	got, err = repo.GetByEmail(ctx, "jo@x.com")
	require.NoError(t, err)
	assert.Equal(t, "654321", *got.OTP)

	got.PasswordHash = "$2a$12$new"
	got.ClearOTP()
	require.NoError(t, repo.Save(ctx, got))

	got, err = repo.GetByEmail(ctx, "jo@x.com")
	require.NoError(t, err)
	assert.Equal(t, "$2a$12$new", got.PasswordHash)
	assert.False(t, got.HasPendingOTP())
}

func TestUserRepository_SaveMissingUser(t *testing.T) {
	repo := setupUserRepo(t)

	user := newTestUser("ghost@x.com")
	user.ID = "does-not-exist"
	user.SetOTP("123456", time.Now().Add(time.Minute))

	err := repo.Save(context.Background(), user)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_SetChallengeKeepsConcurrentPasswordChange(t *testing.T) {
	ctx := context.Background()
	repo := setupUserRepo(t)

	user := newTestUser("jo@x.com")
	require.NoError(t, repo.Create(ctx, user))

	// the forgot-password request reads first
	issuing, err := repo.GetByEmail(ctx, "jo@x.com")
	require.NoError(t, err)

	// a reset commits in between
	resetting, err := repo.GetByEmail(ctx, "jo@x.com")
	require.NoError(t, err)
	resetting.PasswordHash = "$2a$12$NEWHASH"
	resetting.ClearOTP()
	require.NoError(t, repo.Save(ctx, resetting))

	expiry := time.Now().Add(20 * time.Minute).Truncate(time.Millisecond)
	require.NoError(t, repo.SetChallenge(ctx, issuing.ID, "123456", expiry))

	got, err := repo.GetByEmail(ctx, "jo@x.com")
	require.NoError(t, err)
	assert.Equal(t, "$2a$12$NEWHASH", got.PasswordHash)
	require.True(t, got.HasPendingOTP())
	assert.Equal(t, "123456", *got.OTP)
	assert.True(t, expiry.Equal(*got.OTPExpiry))

	// reissue overwrites the pending pair
	require.NoError(t, repo.SetChallenge(ctx, issuing.ID, "654321", expiry.Add(time.Minute)))
	got, err = repo.GetByEmail(ctx, "jo@x.com")
	require.NoError(t, err)
	assert.Equal(t, "654321", *got.OTP)
	assert.True(t, expiry.Add(time.Minute).Equal(*got.OTPExpiry))
}

func TestUserRepository_SetChallengeMissingUser(t *testing.T) {
	repo := setupUserRepo(t)

	err := repo.SetChallenge(context.Background(), "does-not-exist", "123456", time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
