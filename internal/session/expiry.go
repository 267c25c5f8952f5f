package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by ExpiresAt for tokens without an exp claim.
var ErrNoExpiry = errors.New("token has no exp claim")

var unverified = jwt.NewParser()

// ExpiresAt reads the exp claim without verifying the signature. The client
// uses it only to decide when to stop sending a token; the server still
// verifies every request.
func ExpiresAt(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, fmt.Errorf("empty token")
	}
	var claims jwt.RegisteredClaims
	if _, _, err := unverified.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired reports whether token must no longer be used at now. Tokens that
// cannot be decoded or carry no exp are expired.
func IsExpired(token string, now time.Time) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return true
	}
	return !now.Before(exp)
}
