package domain

import "time"

// UserType distinguishes guests (who book) from hosts (who list properties).
type UserType string

const (
	UserTypeGuest UserType = "guest"
	UserTypeHost  UserType = "host"
)

// Valid reports whether t is one of the known account types.
func (t UserType) Valid() bool {
	return t == UserTypeGuest || t == UserTypeHost
}

// User represents one account of the marketplace.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	UserType     UserType
	// OTP and OTPExpiry are both set while a password reset is pending and both nil otherwise.
	OTP       *string
	OTPExpiry *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SetOTP records a pending reset code, replacing any earlier one.
func (u *User) SetOTP(code string, expiresAt time.Time) {
	exp := expiresAt.UTC()
	u.OTP = &code
	u.OTPExpiry = &exp
}

// ClearOTP drops the pending reset code.
func (u *User) ClearOTP() {
	u.OTP = nil
	u.OTPExpiry = nil
}

// HasPendingOTP reports whether a reset code is stored.
func (u *User) HasPendingOTP() bool {
	return u.OTP != nil && u.OTPExpiry != nil
}

// Snapshot copies the identity fields shown to the rest of the application.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		UserType:  u.UserType,
	}
}
