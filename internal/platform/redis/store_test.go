package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/storefront/internal/platform/storage/kvtest"
	"github.com/phrazzld/storefront/internal/store"
)

func openTestStore(t *testing.T, mr *miniredis.Miniredis, prefix string) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{Addr: mr.Addr(), KeyPrefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) store.KV {
		return openTestStore(t, miniredis.RunT(t), "storefront:")
	})
}

func TestKeysArePrefixed(t *testing.T) {
	mr := miniredis.RunT(t)
	s := openTestStore(t, mr, "storefront:")
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, store.UsersKey, []byte(`[]`)))

	got, err := mr.Get("storefront:users")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)
	assert.False(t, mr.Exists("users"))
}

func TestPrefixesIsolateStores(t *testing.T) {
	mr := miniredis.RunT(t)
	a := openTestStore(t, mr, "a:")
	b := openTestStore(t, mr, "b:")
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, store.CurrentUserKey, []byte("alice")))

	_, err := b.Get(ctx, store.CurrentUserKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOpenRequiresAddr(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.Error(t, err)
}

func TestOpenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(context.Background(), Options{Addr: addr})
	assert.ErrorIs(t, err, store.ErrStorageFailure)
}

func TestServerFailureIsStorageFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	s := openTestStore(t, mr, "")
	ctx := context.Background()

	mr.SetError("ERR backend unavailable")

	assert.ErrorIs(t, s.Set(ctx, "k", []byte("v")), store.ErrStorageFailure)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrStorageFailure)
	assert.ErrorIs(t, s.Remove(ctx, "k"), store.ErrStorageFailure)
}
