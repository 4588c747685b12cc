// Package kvtest holds the behavior every store.KV adapter must share.
// Adapter tests call Run with a constructor for a fresh, empty store.
package kvtest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/storefront/internal/store"
)

// Run exercises the store.KV contract against stores built by newKV.
func Run(t *testing.T, newKV func(t *testing.T) store.KV) {
	t.Helper()

	t.Run("get missing key", func(t *testing.T) {
		kv := newKV(t)
		_, err := kv.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.False(t, store.IsStorageFailure(err), "absence is not a fault")
	})

	t.Run("set then get", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, store.UsersKey, []byte(`[{"email":"a@x.com"}]`)))
		got, err := kv.Get(ctx, store.UsersKey)
		require.NoError(t, err)
		assert.Equal(t, `[{"email":"a@x.com"}]`, string(got))
	})

	t.Run("last write wins", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, "cart_x", []byte("1")))
		require.NoError(t, kv.Set(ctx, "cart_x", []byte("2")))
		got, err := kv.Get(ctx, "cart_x")
		require.NoError(t, err)
		assert.Equal(t, "2", string(got))
	})

	t.Run("empty blob is stored", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, "cart_x", []byte{}))
		got, err := kv.Get(ctx, "cart_x")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("remove", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, store.CurrentUserKey, []byte("u")))
		require.NoError(t, kv.Remove(ctx, store.CurrentUserKey))
		_, err := kv.Get(ctx, store.CurrentUserKey)
		assert.ErrorIs(t, err, store.ErrNotFound)

		assert.NoError(t, kv.Remove(ctx, store.CurrentUserKey), "removing an absent key is not an error")
	})

	t.Run("keys are independent", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, "cart_a", []byte("a")))
		require.NoError(t, kv.Set(ctx, "cart_b", []byte("b")))
		require.NoError(t, kv.Remove(ctx, "cart_a"))

		got, err := kv.Get(ctx, "cart_b")
		require.NoError(t, err)
		assert.Equal(t, "b", string(got))
	})

	t.Run("returned blob is a copy", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		blob := []byte("abc")
		require.NoError(t, kv.Set(ctx, "k", blob))
		blob[0] = 'z'

		got, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got))
		got[1] = 'z'

		again, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(again))
	})

	t.Run("canceled context", func(t *testing.T) {
		kv := newKV(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, kv.Set(ctx, "k", []byte("v")), context.Canceled)
		_, err := kv.Get(ctx, "k")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				key := fmt.Sprintf("cart_%d", i)
				assert.NoError(t, kv.Set(ctx, key, []byte(key)))
			}()
		}
		wg.Wait()

		for i := range 16 {
			key := fmt.Sprintf("cart_%d", i)
			got, err := kv.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, key, string(got))
		}
	})
}
