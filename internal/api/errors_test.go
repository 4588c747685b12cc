package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/storefront/internal/domain"
	"github.com/phrazzld/storefront/internal/service/auth"
	"github.com/phrazzld/storefront/internal/service/cart"
	"github.com/phrazzld/storefront/internal/service/identity"
	"github.com/phrazzld/storefront/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"invalid credentials", identity.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "Invalid token"},
		{"session ended", auth.ErrSessionEnded, http.StatusUnauthorized, "Session ended"},
		{"duplicate email", identity.ErrAlreadyExists, http.StatusConflict, "Email already exists"},
		{"not in cart", fmt.Errorf("%w: 9", cart.ErrNotInCart), http.StatusNotFound, "Product not in cart"},
		{"not attached", cart.ErrNotAttached, http.StatusConflict, "Cart is not available yet"},
		{"validation", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyEmail), http.StatusBadRequest, "Invalid request data"},
		{"bad quantity", domain.ErrInvalidQuantity, http.StatusBadRequest, "Invalid request data"},
		{"storage", store.NewStoreError("users", "set", "write failed", errors.New("disk full")), http.StatusServiceUnavailable, "Storage unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.message, GetSafeErrorMessage(tt.err))
		})
	}

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}
