// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyUserID is returned when a user record carries the nil UUID.
	ErrEmptyUserID = errors.New("user ID cannot be empty")

	// ErrEmptyEmail is returned when a user record has no email.
	ErrEmptyEmail = errors.New("email cannot be empty")

	// ErrEmptySecret is returned when a user record has no credential secret.
	ErrEmptySecret = errors.New("secret cannot be empty")

	// ErrInvalidQuantity is returned when a cart item quantity is below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrNegativePrice is returned when a cart item has a negative unit price.
	ErrNegativePrice = errors.New("unit price cannot be negative")

	// ErrInvalidProductID is returned when a cart item has no product ID.
	ErrInvalidProductID = errors.New("product ID must be positive")
)
