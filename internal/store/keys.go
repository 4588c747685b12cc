package store

import "github.com/google/uuid"

// Storage keys. The layout is shared with earlier releases of the mobile
// client, which wrote the same keys to device storage.
const (
	// UsersKey holds the serialized identity registry.
	UsersKey = "users"

	// CurrentUserKey holds the serialized user of the last live session.
	CurrentUserKey = "currentUser"

	cartKeyPrefix = "cart_"
)

// CartKey is the key of the persisted cart owned by ownerID.
func CartKey(ownerID uuid.UUID) string {
	return cartKeyPrefix + ownerID.String()
}
