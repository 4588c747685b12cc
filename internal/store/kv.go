package store

import "context"

// KV is the asynchronous key-value blob store the session core persists into.
//
// Implementations must give last-write-wins semantics per key. Get returns
// ErrNotFound for a key that was never written or has been removed; any other
// error is a storage fault and should match ErrStorageFailure.
type KV interface {
	// Get returns the blob stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores blob under key, replacing any previous value.
	Set(ctx context.Context, key string, blob []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
