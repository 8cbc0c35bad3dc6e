package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrHash indicates the hashing primitive itself failed, e.g. a malformed
// stored hash was handed to Verify.
var ErrHash = errors.New("credential hashing failed")

// ErrMismatch indicates the secret does not match the stored hash.
var ErrMismatch = errors.New("secret does not match hash")

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

// Hasher one-way transforms plaintext secrets into storable bcrypt hashes.
// It holds only the cost factor and is safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost. Costs outside
// bcrypt's supported range fall back to DefaultBcryptCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of secret. The salt is generated internally,
// so two calls with the same secret produce different hashes.
func (h *Hasher) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHash, err)
	}
	return string(hashed), nil
}

// Verify compares secret against a stored hash. It returns nil on match,
// ErrMismatch when the secret is wrong, and ErrHash when the stored hash
// is not a valid bcrypt token.
func (h *Hasher) Verify(secret, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return fmt.Errorf("%w: %v", ErrHash, err)
}
