package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 12

// dummyHash is a valid bcrypt hash of an unguessable value, compared against
// when the registration number is unknown so lookup failures cost the same
// as wrong secrets.
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("rollcall-dummy-secret"), BcryptCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// HashSecret hashes a student secret for storage
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashedBytes), nil
}

// CompareSecret compares a stored hash against a submitted secret
func CompareSecret(hashedSecret, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
}

// CompareDummySecret burns one bcrypt comparison against a throwaway hash
func CompareDummySecret(secret string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(secret))
}
