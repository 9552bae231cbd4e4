package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt hashes without silent truncation.
const MaxPasswordBytes = 72

var (
	ErrPasswordTooLong  = errors.New("password exceeds 72 bytes")
	ErrPasswordMismatch = errors.New("password does not match")
)

// HashPassword hashes a plaintext password. Out-of-range costs use bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// ComparePassword returns ErrPasswordMismatch for a wrong password and a wrapped
// error when the stored hash itself is unreadable.
func ComparePassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("compare password: %w", err)
	}
}
