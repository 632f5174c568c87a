package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StaticToken is a TokenProvider that always returns the same token
type StaticToken string

// DefaultExpiryWindow is how close to its expiry a token counts as expiring
const DefaultExpiryWindow = 5 * time.Minute

var (
	ErrNoCredentials = errors.New("no stored credentials")
	ErrTokenExpired  = errors.New("token expired")
)

var parser = jwt.NewParser()

// Token returns the token
func (s StaticToken) Token() (string, error) {
	if s == "" {
		return "", ErrNoCredentials
	}
	return string(s), nil
}

// IsExpired reports whether the token's exp claim lies in the past.
// Signatures are not verified; the backend does that. Tokens that cannot
// be decoded count as expired, tokens without exp never expire
func IsExpired(token string, now time.Time) bool {
	exp, ok := expiry(token)
	if !ok {
		return true
	}
	return !exp.IsZero() && exp.Before(now)
}

// IsExpiring reports whether the token expires within the given window
func IsExpiring(token string, now time.Time, within time.Duration) bool {
	exp, ok := expiry(token)
	if !ok {
		return true
	}
	return !exp.IsZero() && exp.Sub(now) < within
}

func expiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false
	}
	if exp == nil {
		return time.Time{}, true
	}
	return exp.Time, true
}
