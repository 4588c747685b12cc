package mocks

import "errors"

// ErrMockMismatch is returned by MockSecretHasher when comparison fails.
var ErrMockMismatch = errors.New("secret mismatch")

// MockSecretHasher implements identity.SecretHasher for testing
type MockSecretHasher struct {
	// HashFn and CompareFn allow for custom logic in tests
	HashFn    func(secret string) (string, error)
	CompareFn func(stored, secret string) error

	// CompareCalledWith stores the arguments passed to Compare for verification
	CompareCalledWith struct {
		Stored string
		Secret string
	}

	// CompareCallCount tracks how many times Compare was called
	CompareCallCount int
}

// Hash returns secret prefixed with "mock:" unless HashFn is set.
func (m *MockSecretHasher) Hash(secret string) (string, error) {
	if m.HashFn != nil {
		return m.HashFn(secret)
	}
	return "mock:" + secret, nil
}

// Compare matches values produced by the default Hash unless CompareFn is set.
func (m *MockSecretHasher) Compare(stored, secret string) error {
	m.CompareCalledWith.Stored = stored
	m.CompareCalledWith.Secret = secret
	m.CompareCallCount++

	if m.CompareFn != nil {
		return m.CompareFn(stored, secret)
	}
	if stored == "mock:"+secret {
		return nil
	}
	return ErrMockMismatch
}
