package domain

import "time"

// UserSnapshot is the copy of a user's identity embedded in a session at login.
// It is not refreshed when the underlying user changes.
type UserSnapshot struct {
	ID        string   `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	UserType  UserType `json:"user_type"`
}

// FullName joins first and last name for display.
func (s UserSnapshot) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// IsHost reports whether the snapshot belongs to a host account.
func (s UserSnapshot) IsHost() bool {
	return s.UserType == UserTypeHost
}

// Session is the server-side record of one browser context.
type Session struct {
	ID        string
	LoggedIn  bool
	User      *UserSnapshot
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAnonymousSession returns an unauthenticated session that expires after ttl.
func NewAnonymousSession(id string, now time.Time, ttl time.Duration) *Session {
	now = now.UTC()
	return &Session{
		ID:        id,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Authenticate marks the session as logged in for the given user.
func (s *Session) Authenticate(user UserSnapshot) {
	s.LoggedIn = true
	s.User = &user
}

// Authenticated reports whether the session carries a logged-in user.
func (s *Session) Authenticated() bool {
	return s != nil && s.LoggedIn && s.User != nil
}

// Expired reports whether the session's time-to-live has elapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
