package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/storefront/internal/domain"
	"github.com/phrazzld/storefront/internal/service/auth"
	"github.com/phrazzld/storefront/internal/service/cart"
	"github.com/phrazzld/storefront/internal/service/identity"
	"github.com/phrazzld/storefront/internal/store"
)

// MapErrorToStatusCode maps service errors to HTTP status codes without
// exposing their text.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrSessionEnded):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, cart.ErrNotInCart):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrNotAttached),
		errors.Is(err, cart.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidProductID),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrNegativePrice):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrStorageFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, identity.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"
	case errors.Is(err, auth.ErrSessionEnded):
		return "Session ended"
	case errors.Is(err, store.ErrDuplicate):
		return "Email already exists"
	case errors.Is(err, cart.ErrNotInCart):
		return "Product not in cart"
	case errors.Is(err, cart.ErrNotAttached),
		errors.Is(err, cart.ErrSuperseded):
		return "Cart is not available yet"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidProductID),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrNegativePrice):
		return "Invalid request data"
	case errors.Is(err, store.ErrStorageFailure):
		return "Storage unavailable"
	default:
		return "An unexpected error occurred"
	}
}
