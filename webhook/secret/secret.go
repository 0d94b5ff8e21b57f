package secret

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// Header is the only place a shared secret may travel in
	Header = "x-webhook-secret"

	// SecretBytes is the entropy of a generated secret (256 bits)
	SecretBytes = 32

	// DefaultCost is the bcrypt cost used when none is configured
	DefaultCost = 12

	// MinCost is the cheapest cost bcrypt accepts, used by tests
	MinCost = bcrypt.MinCost
)

// Generate creates a new cryptographically secure shared secret, hex encoded.
// The plaintext is meant to be shown once and then only its hash kept.
func Generate() (string, error) {
	bytes := make([]byte, SecretBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Hash returns the salted bcrypt hash of a plaintext secret
func Hash(plain string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", fmt.Errorf("bcrypt cost must be between %d and %d (got %d)", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hashing secret: %w", err)
	}
	return string(hash), nil
}

// Verify compares a presented secret against a stored hash.
// An empty secret or a malformed hash never verifies.
func Verify(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Generated bundles a new plaintext secret with its hash
type Generated struct {
	Plain string
	Hash  string
}

// New generates a secret and hashes it in one step, used on creation and rotation
func New(cost int) (Generated, error) {
	plain, err := Generate()
	if err != nil {
		return Generated{}, err
	}
	hash, err := Hash(plain, cost)
	if err != nil {
		return Generated{}, err
	}
	return Generated{Plain: plain, Hash: hash}, nil
}

// ValidateHash rejects values that are not bcrypt hashes, used for hashes supplied by configuration
func ValidateHash(hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("invalid bcrypt hash: %w", err)
	}
	return nil
}
