package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultHashCost = 10

// HashPassword derives a salted bcrypt hash. Cost comes from configuration
// so it can be tuned without a code change.
func HashPassword(password string, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword reports whether candidate matches the stored hash.
// A mismatch is a false return, never an error.
func VerifyPassword(candidate string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(candidate)) == nil
}
