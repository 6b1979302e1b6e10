package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestbook/internal/domain"
	"nestbook/internal/repository"
)

func setupSessionRepo(t *testing.T) repository.SessionRepository {
	t.Helper()
	db, err := Open(MemoryPath)
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { db.Close() })
	return NewSessionRepository(db)
}

func TestSessionRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := setupSessionRepo(t)
	now := time.Now()

	sess := domain.NewAnonymousSession(uuid.NewString(), now, time.Hour)
	sess.Authenticate(domain.UserSnapshot{
		ID:        "u1",
		FirstName: "Jo",
		Email:     "jo@x.com",
		UserType:  domain.UserTypeHost,
	})
	require.NoError(t, repo.Save(ctx, sess))

	got, err := repo.Get(ctx, sess.ID, now)
	require.NoError(t, err)
	assert.True(t, got.Authenticated())
	require.NotNil(t, got.User)
	assert.Equal(t, "jo@x.com", got.User.Email)
	assert.Equal(t, domain.UserTypeHost, got.User.UserType)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Millisecond)
}

func TestSessionRepository_GetMissing(t *testing.T) {
	repo := setupSessionRepo(t)

	_, err := repo.Get(context.Background(), "nope", time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionRepository_GetExpired(t *testing.T) {
	ctx := context.Background()
	repo := setupSessionRepo(t)
	now := time.Now()

	sess := domain.NewAnonymousSession(uuid.NewString(), now, time.Minute)
	require.NoError(t, repo.Save(ctx, sess))

	_, err := repo.Get(ctx, sess.ID, now.Add(2*time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionRepository_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := setupSessionRepo(t)
	now := time.Now()

	sess := domain.NewAnonymousSession(uuid.NewString(), now, time.Hour)
	require.NoError(t, repo.Save(ctx, sess))

	sess.Authenticate(domain.UserSnapshot{ID: "u1", FirstName: "Jo", Email: "jo@x.com", UserType: domain.UserTypeGuest})
	require.NoError(t, repo.Save(ctx, sess))

	got, err := repo.Get(ctx, sess.ID, now)
	require.NoError(t, err)
	assert.True(t, got.Authenticated())
}

func TestSessionRepository_Destroy(t *testing.T) {
	ctx := context.Background()
	repo := setupSessionRepo(t)
	now := time.Now()

	sess := domain.NewAnonymousSession(uuid.NewString(), now, time.Hour)
	require.NoError(t, repo.Save(ctx, sess))
	require.NoError(t, repo.Destroy(ctx, sess.ID))

	_, err := repo.Get(ctx, sess.ID, now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// destroying again is a no-op
	assert.NoError(t, repo.Destroy(ctx, sess.ID))
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := setupSessionRepo(t)
	now := time.Now()

	stale := domain.NewAnonymousSession(uuid.NewString(), now.Add(-2*time.Hour), time.Hour)
	fresh := domain.NewAnonymousSession(uuid.NewString(), now, time.Hour)
	require.NoError(t, repo.Save(ctx, stale))
	require.NoError(t, repo.Save(ctx, fresh))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, fresh.ID, now)
	assert.NoError(t, err)
}

func TestSessionRepository_Extend(t *testing.T) {
	ctx := context.Background()
	repo := setupSessionRepo(t)
	now := time.Now()

	sess := domain.NewAnonymousSession(uuid.NewString(), now, time.Minute)
	require.NoError(t, repo.Save(ctx, sess))

	ok, err := repo.Extend(ctx, sess.ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Get(ctx, sess.ID, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), got.ExpiresAt, time.Millisecond)

	require.NoError(t, repo.Destroy(ctx, sess.ID))
	ok, err = repo.Extend(ctx, sess.ID, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "a destroyed session is not recreated")

	_, err = repo.Get(ctx, sess.ID, now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
