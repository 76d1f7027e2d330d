package auth

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword derives a bcrypt hash from the plaintext password. Empty
// passwords are rejected before any hashing work happens.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// ComparePasswordAndHash checks the plaintext against a stored hash. Every
// failure, including a corrupted stored hash, collapses into the single
// credential mismatch sentinel so callers cannot distinguish the cases.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

// fallbackPasswordHash is a valid bcrypt digest of a value that was never
// recorded. It matches no password, it only exists so the compare path still
// runs when hashing itself is failing.
const fallbackPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// RandomPasswordHash produces a hash of a random value nobody knows. Used to
// keep login timing flat when the email does not resolve to an account. If
// hashing keeps failing it falls back to a fixed throwaway digest rather
// than recursing.
func RandomPasswordHash() string {
	for attempt := 0; attempt < 3; attempt++ {
		hash, err := HashPassword(uuid.NewString())
		if err == nil {
			return hash
		}
	}
	return fallbackPasswordHash
}
