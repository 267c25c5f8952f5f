// Package secrets hashes and verifies account passwords with bcrypt.
package secrets

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"

	dErrors "unearthify/pkg/domain-errors"
)

// Cost is the bcrypt work factor for new hashes.
const Cost = bcrypt.DefaultCost

var placeholder = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("unearthify-placeholder"), Cost)
	return h
})

func Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeValidation, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), Cost)
	switch {
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return "", dErrors.New(dErrors.CodeValidation, "secret is too long")
	case err != nil:
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash secret")
	}
	return string(hashed), nil
}

// Verify returns a CodeUnauthorized error when secret does not match hash.
func Verify(secret, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return dErrors.New(dErrors.CodeUnauthorized, "invalid secret")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify secret")
	}
}

// Burn spends the time of one Verify without a stored hash, so sign-ins for
// unknown accounts take as long as wrong passwords.
func Burn(secret string) {
	_ = bcrypt.CompareHashAndPassword(placeholder(), []byte(secret))
}
