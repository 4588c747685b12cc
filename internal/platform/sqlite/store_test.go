package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/storefront/internal/platform/storage/kvtest"
	"github.com/phrazzld/storefront/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) store.KV {
		return openTestStore(t, filepath.Join(t.TempDir(), "storefront.sqlite"))
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.sqlite")
	ctx := context.Background()

	s := openTestStore(t, path)
	require.NoError(t, s.Set(ctx, store.UsersKey, []byte("[]")))
	require.NoError(t, s.Migrate(ctx))

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_entries`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.sqlite")
	ctx := context.Background()

	s, err := Open(ctx, path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "cart_a", []byte(`[]`)))
	require.NoError(t, s.Close())

	got, err := openTestStore(t, path).Get(ctx, "cart_a")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "", testLogger())
	assert.Error(t, err)
}

func TestClosedStoreFails(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "storefront.sqlite"), testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, store.ErrStorageFailure)
}
