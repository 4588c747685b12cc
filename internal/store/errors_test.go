package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("some error"),
			expected: false,
		},
		{
			name:     "ErrNotFound",
			err:      ErrNotFound,
			expected: true,
		},
		{
			name:     "wrapped ErrNotFound",
			err:      fmt.Errorf("failed to read cart: %w", ErrNotFound),
			expected: true,
		},
		{
			name:     "storage failure",
			err:      NewStoreError("users", "get", "read failed", errors.New("disk")),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFoundError(tt.err); got != tt.expected {
				t.Errorf("IsNotFoundError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"ErrDuplicate", ErrDuplicate, true},
		{"ErrEmailExists", ErrEmailExists, true},
		{"wrapped ErrEmailExists", fmt.Errorf("register: %w", ErrEmailExists), true},
		{"ErrNotFound", ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsDuplicateError(tt.err))
		})
	}
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection reset")

	t.Run("message with cause", func(t *testing.T) {
		err := NewStoreError("cart_1", "set", "write failed", cause)
		assert.Equal(t, "set operation on cart_1 failed: write failed: connection reset", err.Error())
	})

	t.Run("message without cause", func(t *testing.T) {
		err := NewStoreError("users", "get", "bucket missing", nil)
		assert.Equal(t, "get operation on users failed: bucket missing", err.Error())
	})

	t.Run("matches storage failure and cause", func(t *testing.T) {
		err := fmt.Errorf("load registry: %w", NewStoreError("users", "get", "read failed", cause))
		assert.True(t, IsStorageFailure(err))
		assert.ErrorIs(t, err, cause)

		var storeErr *StoreError
		assert.True(t, errors.As(err, &storeErr))
		assert.Equal(t, "users", storeErr.Entity)
	})

	t.Run("plain errors are not storage failures", func(t *testing.T) {
		assert.False(t, IsStorageFailure(cause))
		assert.False(t, IsStorageFailure(nil))
	})
}
