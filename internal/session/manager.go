package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"nestbook/internal/domain"
	"nestbook/internal/repository"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 14 * 24 * time.Hour

// touchInterval bounds how often an active session's expiry is pushed forward.
const touchInterval = time.Minute

// ErrSessionGone is returned by Touch when the session was destroyed after it was loaded.
var ErrSessionGone = errors.New("session no longer exists")

// Manager ties the session store to the signed cookie.
type Manager struct {
	store repository.SessionRepository
	codec *CookieCodec
	ttl   time.Duration
	now   func() time.Time
}

type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store repository.SessionRepository, codec *CookieCodec, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		store: store,
		codec: codec,
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL is the idle lifetime of a session.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// NewAnonymous returns a fresh unauthenticated session. It is not stored until it is saved.
func (m *Manager) NewAnonymous() *domain.Session {
	return domain.NewAnonymousSession(uuid.NewString(), m.now(), m.ttl)
}

// Load resolves a cookie value into a session. A missing, forged or expired session yields a fresh anonymous one.
// Store failures also yield an anonymous session, together with the error.
func (m *Manager) Load(ctx context.Context, cookie string) (*domain.Session, error) {
	if cookie == "" {
		return m.NewAnonymous(), nil
	}
	sid, err := m.codec.Decode(cookie)
	if err != nil {
		return m.NewAnonymous(), nil
	}
	sess, err := m.store.Get(ctx, sid, m.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return m.NewAnonymous(), nil
		}
		return m.NewAnonymous(), oops.Code("SESSION_LOAD_FAILED").With("operation", "get session").Wrap(err)
	}
	return sess, nil
}

// Login stores a new authenticated session for user and returns it with its cookie value.
// The session id is always regenerated and the previous session removed.
// It returns only after the store has confirmed the write.
func (m *Manager) Login(ctx context.Context, previous *domain.Session, user domain.UserSnapshot) (*domain.Session, string, error) {
	sess := m.NewAnonymous()
	sess.Authenticate(user)

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, "", oops.Code("SESSION_SAVE_FAILED").With("operation", "save session").Wrap(err)
	}
	cookie, err := m.codec.Encode(sess.ID, m.now())
	if err != nil {
		return nil, "", oops.Code("SESSION_SAVE_FAILED").With("operation", "sign cookie").Wrap(err)
	}

	if previous != nil && previous.ID != "" {
		if err := m.store.Destroy(ctx, previous.ID); err != nil {
			return sess, cookie, oops.Code("SESSION_DESTROY_FAILED").With("operation", "drop previous session").Wrap(err)
		}
	}
	return sess, cookie, nil
}

// Touch pushes an authenticated session's expiry forward. It reports whether the session was rewritten,
// in which case the cookie should be refreshed as well. A session destroyed in the meantime is not
// recreated and yields ErrSessionGone.
func (m *Manager) Touch(ctx context.Context, sess *domain.Session) (bool, error) {
	if !sess.Authenticated() {
		return false, nil
	}
	now := m.now()
	if sess.ExpiresAt.Sub(now) > m.ttl-touchInterval {
		return false, nil
	}
	expiresAt := now.UTC().Add(m.ttl)
	extended, err := m.store.Extend(ctx, sess.ID, expiresAt)
	if err != nil {
		return false, oops.Code("SESSION_SAVE_FAILED").With("operation", "touch session").Wrap(err)
	}
	if !extended {
		return false, ErrSessionGone
	}
	sess.ExpiresAt = expiresAt
	return true, nil
}

// Cookie returns the signed cookie value for an existing session.
func (m *Manager) Cookie(sess *domain.Session) (string, error) {
	return m.codec.Encode(sess.ID, m.now())
}

// Destroy removes the session. A nil or never-stored session is not an error.
func (m *Manager) Destroy(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.ID == "" {
		return nil
	}
	if err := m.store.Destroy(ctx, sess.ID); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").With("operation", "destroy session").Wrap(err)
	}
	return nil
}

// Prune removes every expired session and returns how many were removed.
func (m *Manager) Prune(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, oops.Code("SESSION_PRUNE_FAILED").With("operation", "delete expired").Wrap(err)
	}
	return n, nil
}
