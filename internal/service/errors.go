package service

import (
	"errors"
	"strings"
)

var (
	// ErrAccountExists is returned by Signup when the email is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrUserNotFound is returned when no account matches the email.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredential is returned by Login when the password does not match.
	ErrInvalidCredential = errors.New("incorrect password")
	// ErrOTPExpired is returned when no reset code is pending or it is past its expiry.
	ErrOTPExpired = errors.New("otp expired")
	// ErrOTPMismatch is returned when the submitted reset code differs from the stored one.
	ErrOTPMismatch = errors.New("otp does not match")
)

// ValidationError carries every failed field rule, in form order.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// NotificationError reports an email that could not be delivered.
type NotificationError struct {
	Kind string
	Err  error
}

func (e *NotificationError) Error() string {
	return "send " + e.Kind + " email: " + e.Err.Error()
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

const genericMessage = "Something went wrong, please try again"

// Messages converts an error returned by AuthService into the lines shown on the form.
// Store and other infrastructure failures collapse into one generic line.
func Messages(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Messages
	}
	var nerr *NotificationError
	switch {
	case errors.Is(err, ErrAccountExists):
		return []string{"An account with this email already exists"}
	case errors.Is(err, ErrUserNotFound):
		return []string{"User not found"}
	case errors.Is(err, ErrInvalidCredential):
		return []string{"Incorrect password"}
	case errors.Is(err, ErrOTPExpired):
		return []string{"OTP expired"}
	case errors.Is(err, ErrOTPMismatch):
		return []string{"OTP does not match"}
	case errors.As(err, &nerr):
		return []string{"Could not send the email, please try again"}
	default:
		return []string{genericMessage}
	}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
