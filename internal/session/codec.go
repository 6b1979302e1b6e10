// Package session issues, loads and destroys server-side browser sessions.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "nestbook"

// ErrInvalidCookie is returned for cookies that are malformed, tampered with or signed with another secret.
var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieCodec signs session ids into the cookie value so that ids cannot be guessed or forged.
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret string) (*CookieCodec, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("session secret must be at least 16 bytes")
	}
	return &CookieCodec{secret: []byte(secret)}, nil
}

// Encode returns the signed cookie value for a session id.
func (c *CookieCodec) Encode(sid string, issuedAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:       sid,
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(issuedAt),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

// Decode verifies a cookie value and returns the session id it carries.
// Expiry is tracked by the session store, not by the token.
func (c *CookieCodec) Decode(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	if claims.ID == "" {
		return "", ErrInvalidCookie
	}
	return claims.ID, nil
}
