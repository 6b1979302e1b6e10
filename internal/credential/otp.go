package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OTPValidity is how long an issued reset code stays usable.
const OTPValidity = 20 * time.Minute

const (
	otpMin  = 100000
	otpSpan = 900000 // codes cover 100000-999999
)

// OTPGenerator produces one-time reset codes.
type OTPGenerator interface {
	Generate() (string, error)
}

// RandomOTP draws 6-digit codes uniformly from crypto/rand.
type RandomOTP struct{}

func (RandomOTP) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
