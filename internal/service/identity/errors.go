package identity

import (
	"errors"
	"fmt"

	"github.com/phrazzld/storefront/internal/store"
)

var (
	// ErrAlreadyExists is returned by Register when the email is taken.
	// It matches store.ErrDuplicate.
	ErrAlreadyExists = fmt.Errorf("%w: email already registered", store.ErrDuplicate)

	// ErrRegistryUnavailable is returned while the registry cannot be read
	// from storage. It matches store.ErrStorageFailure.
	ErrRegistryUnavailable = fmt.Errorf("%w: registry unavailable", store.ErrStorageFailure)

	// ErrInvalidCredentials is returned by Login for an unknown email and for
	// a wrong secret alike.
	ErrInvalidCredentials = errors.New("invalid email or secret")

	// ErrSecretMismatch is returned by SecretHasher.Compare.
	ErrSecretMismatch = errors.New("secret mismatch")
)
