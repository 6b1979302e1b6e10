package repository

import (
	"encoding/json"
	"fmt"

	"nestbook/internal/domain"
)

// sessionData is the serialised body of a session row.
type sessionData struct {
	LoggedIn bool                 `json:"logged_in"`
	User     *domain.UserSnapshot `json:"user,omitempty"`
}

// EncodeSessionData marshals the mutable part of a session for storage.
func EncodeSessionData(s *domain.Session) ([]byte, error) {
	b, err := json.Marshal(sessionData{LoggedIn: s.LoggedIn, User: s.User})
	if err != nil {
		return nil, fmt.Errorf("encode session data: %w", err)
	}
	return b, nil
}

// DecodeSessionData fills the mutable part of a session from storage.
// A logged-in flag without a user snapshot is treated as anonymous.
func DecodeSessionData(b []byte, s *domain.Session) error {
	var data sessionData
	if err := json.Unmarshal(b, &data); err != nil {
		return fmt.Errorf("decode session data: %w", err)
	}
	s.User = data.User
	s.LoggedIn = data.LoggedIn && data.User != nil
	return nil
}
