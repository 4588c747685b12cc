package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// User is a registered storefront identity.
//
// The JSON field names match the records written by earlier releases of the
// mobile client, so an existing "users" blob keeps decoding. Secret holds
// whatever the configured hasher produced: the plaintext secret under the
// baseline scheme, a bcrypt hash otherwise.
type User struct {
	ID     uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Secret string    `json:"password"`
}

// NewUser creates a user with a freshly generated ID.
// The secret is stored as given; hashing is the caller's concern.
func NewUser(email, secret string) (*User, error) {
	user := &User{
		ID:     uuid.New(),
		Email:  email,
		Secret: secret,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks that the record is complete.
// Email comparison is case-sensitive everywhere, so no normalization happens here.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if u.Secret == "" {
		return ErrEmptySecret
	}
	return nil
}

// String omits the secret so a User can be logged safely.
func (u User) String() string {
	return fmt.Sprintf("User{ID: %s, Email: %s}", u.ID, u.Email)
}
