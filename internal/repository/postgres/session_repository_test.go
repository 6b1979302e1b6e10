package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestbook/internal/domain"
	"nestbook/internal/repository"
)

var sessionColumns = []string{"id", "data", "expires_at", "created_at", "updated_at"}

func TestSessionRepository_Get(t *testing.T) {
	now := time.Now().UTC()
	data := []byte(`{"logged_in":true,"user":{"id":"u1","first_name":"Jo","last_name":"","email":"jo@x.com","user_type":"guest"}}`)

	t.Run("returns live session", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT id, data, expires_at, created_at, updated_at\s+FROM sessions`).
			WithArgs("s1").
			WillReturnRows(pgxmock.NewRows(sessionColumns).AddRow("s1", data, now.Add(time.Hour), now, now))

		sess, err := NewSessionRepository(mock).Get(context.Background(), "s1", now)
		require.NoError(t, err)
		assert.True(t, sess.Authenticated())
		assert.Equal(t, "jo@x.com", sess.User.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired session is absent", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM sessions`).
			WithArgs("s1").
			WillReturnRows(pgxmock.NewRows(sessionColumns).AddRow("s1", data, now.Add(-time.Second), now, now))

		_, err := NewSessionRepository(mock).Get(context.Background(), "s1", now)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("missing session", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("s1").WillReturnError(pgx.ErrNoRows)

		_, err := NewSessionRepository(mock).Get(context.Background(), "s1", now)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("s1").WillReturnError(errors.New("connection refused"))

		_, err := NewSessionRepository(mock).Get(context.Background(), "s1", now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestSessionRepository_Save(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("s1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sess := domain.NewAnonymousSession("s1", time.Now(), time.Hour)
	require.NoError(t, NewSessionRepository(mock).Save(context.Background(), sess))
	assert.False(t, sess.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DestroyAndDeleteExpired(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectExec(`DELETE FROM sessions WHERE id`).
		WithArgs("s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	repo := NewSessionRepository(mock)
	require.NoError(t, repo.Destroy(context.Background(), "s1"))

	n, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Extend(t *testing.T) {
	expiry := time.Now().Add(time.Hour)

	t.Run("live session", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE sessions SET expires_at`).
			WithArgs(expiry, pgxmock.AnyArg(), "s1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		ok, err := NewSessionRepository(mock).Extend(context.Background(), "s1", expiry)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("destroyed session stays gone", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE sessions SET expires_at`).
			WithArgs(expiry, pgxmock.AnyArg(), "s1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		ok, err := NewSessionRepository(mock).Extend(context.Background(), "s1", expiry)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
