package identity

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/storefront/internal/config"
)

// SecretHasher turns an account secret into its stored form and checks a
// candidate against it.
type SecretHasher interface {
	// Hash returns the value to store for secret.
	Hash(secret string) (string, error)

	// Compare returns nil if secret matches stored, ErrSecretMismatch otherwise.
	Compare(stored, secret string) error
}

// PlaintextHasher stores secrets as given and compares them byte for byte.
// Registries written by earlier clients hold plaintext secrets.
type PlaintextHasher struct{}

// Hash implements SecretHasher.
func (PlaintextHasher) Hash(secret string) (string, error) {
	return secret, nil
}

// Compare implements SecretHasher.
func (PlaintextHasher) Compare(stored, secret string) error {
	if subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) != 1 {
		return ErrSecretMismatch
	}
	return nil
}

// BcryptHasher stores bcrypt hashes.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. Costs outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash implements SecretHasher.
func (h *BcryptHasher) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// Compare implements SecretHasher.
func (h *BcryptHasher) Compare(stored, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrSecretMismatch
	}
	return fmt.Errorf("%w: %v", ErrSecretMismatch, err)
}

// NewHasher selects a hasher for the configured scheme.
func NewHasher(cfg config.IdentityConfig) (SecretHasher, error) {
	switch cfg.SecretScheme {
	case config.SchemePlaintext, "":
		return PlaintextHasher{}, nil
	case config.SchemeBcrypt:
		return NewBcryptHasher(cfg.BcryptCost), nil
	default:
		return nil, fmt.Errorf("unknown secret scheme %q", cfg.SecretScheme)
	}
}
